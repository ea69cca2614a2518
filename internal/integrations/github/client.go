// Package github wraps the GitHub API for label listing, duplicate search
// and issue creation against a single target repository.
package github

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

// IssueSummary is a search result used for duplicate detection.
type IssueSummary struct {
	Number    int
	Title     string
	URL       string
	State     string
	UpdatedAt time.Time
}

// IssueRef identifies a created issue.
type IssueRef struct {
	Number int
	URL    string
}

// Client wraps the GitHub API client for one owner/repo.
type Client struct {
	client *gogithub.Client
	owner  string
	repo   string

	mu          sync.Mutex
	labelsCache []string
}

// NewClient creates an authenticated client for repo in "owner/repo" form.
func NewClient(ctx context.Context, creds Credentials, repo string) (*Client, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid repository %q: expected owner/repo", repo)
	}

	api, err := newAPIClient(ctx, creds)
	if err != nil {
		return nil, err
	}

	return &Client{client: api, owner: owner, repo: name}, nil
}

// Repo returns the target repository in "owner/repo" form.
func (c *Client) Repo() string {
	return c.owner + "/" + c.repo
}

// ListLabels fetches the repository's label names. The result is cached
// after the first successful fetch.
func (c *Client) ListLabels(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	if c.labelsCache != nil {
		cached := c.labelsCache
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var names []string
	opts := &gogithub.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.listLabelsPage(ctx, opts)
		if err != nil {
			return nil, classifyErr(err)
		}
		for _, l := range page {
			names = append(names, l.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.mu.Lock()
	c.labelsCache = names
	c.mu.Unlock()
	log.Printf("[github] Cached %d labels from %s/%s", len(names), c.owner, c.repo)
	return names, nil
}

func (c *Client) listLabelsPage(ctx context.Context, opts *gogithub.ListOptions) ([]*gogithub.Label, *gogithub.Response, error) {
	page, resp, err := c.client.Issues.ListLabels(ctx, c.owner, c.repo, opts)
	if err != nil && isTransient(err) {
		page, resp, err = c.client.Issues.ListLabels(ctx, c.owner, c.repo, opts)
	}
	return page, resp, err
}

// SearchIssues searches the repository's issues for the given keywords,
// most recently updated first.
func (c *Client) SearchIssues(ctx context.Context, keywords []string, maxResults int) ([]IssueSummary, error) {
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	query := fmt.Sprintf("%s repo:%s/%s is:issue", strings.Join(keywords, " "), c.owner, c.repo)

	opts := &gogithub.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: gogithub.ListOptions{PerPage: maxResults},
	}

	result, _, err := c.client.Search.Issues(ctx, query, opts)
	if err != nil && isTransient(err) {
		result, _, err = c.client.Search.Issues(ctx, query, opts)
	}
	if err != nil {
		return nil, classifyErr(err)
	}

	summaries := make([]IssueSummary, 0, len(result.Issues))
	for _, issue := range result.Issues {
		if len(summaries) >= maxResults {
			break
		}
		summaries = append(summaries, IssueSummary{
			Number:    issue.GetNumber(),
			Title:     issue.GetTitle(),
			URL:       issue.GetHTMLURL(),
			State:     issue.GetState(),
			UpdatedAt: issue.GetUpdatedAt().Time,
		})
	}

	log.Printf("[github] Search %q returned %d issues", query, len(summaries))
	return summaries, nil
}

// CreateIssue files a new issue. Labels must already be validated against
// ListLabels; the caller decides the title and body.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (*IssueRef, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("issue title cannot be empty")
	}

	req := &gogithub.IssueRequest{
		Title: gogithub.String(title),
		Body:  gogithub.String(body),
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}

	issue, _, err := c.client.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil && isTransient(err) {
		issue, _, err = c.client.Issues.Create(ctx, c.owner, c.repo, req)
	}
	if err != nil {
		return nil, classifyErr(err)
	}

	ref := &IssueRef{Number: issue.GetNumber(), URL: issue.GetHTMLURL()}
	log.Printf("[github] Created issue #%d: %s", ref.Number, ref.URL)
	return ref, nil
}
