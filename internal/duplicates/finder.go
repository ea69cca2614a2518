// Package duplicates finds existing tracker issues that likely describe the
// same bug as a freshly extracted report, using keyword search plus lexical
// title similarity. Detection is advisory: every failure path degrades to an
// empty candidate list rather than blocking the filing flow.
package duplicates

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/mudlet/bugbot/internal/integrations/github"
	"github.com/mudlet/bugbot/internal/report"
)

// Candidate is an existing issue ranked by similarity to the new report.
type Candidate struct {
	Number int
	Title  string
	URL    string
	State  string

	// Score is the similarity to the report summary, in [0,1].
	Score float64

	// HighConfidence marks candidates that gate filing behind an explicit
	// confirmation. Only open issues qualify.
	HighConfidence bool
}

// Searcher is the slice of the tracker client the finder needs.
type Searcher interface {
	SearchIssues(ctx context.Context, keywords []string, maxResults int) ([]github.IssueSummary, error)
}

const (
	// DefaultThreshold separates "likely duplicate" from "maybe related".
	DefaultThreshold = 0.85

	// DefaultMaxResults bounds how many candidates are surfaced.
	DefaultMaxResults = 5

	searchKeywordLimit = 5
)

// Finder searches the tracker and scores candidates.
type Finder struct {
	searcher  Searcher
	scorer    Scorer
	threshold float64
}

// NewFinder creates a finder. A zero threshold selects DefaultThreshold and
// a nil scorer selects BigramScorer.
func NewFinder(searcher Searcher, scorer Scorer, threshold float64) *Finder {
	if scorer == nil {
		scorer = BigramScorer{}
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Finder{searcher: searcher, scorer: scorer, threshold: threshold}
}

// Find returns up to maxResults candidates sorted by descending similarity.
// Ties keep the tracker's most-recently-updated-first order. Search failure
// is logged and yields an empty slice; it never propagates.
func (f *Finder) Find(ctx context.Context, rep *report.BugReport, maxResults int) []Candidate {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	keywords := f.keywords(rep)
	if len(keywords) == 0 {
		return nil
	}

	issues, err := f.searcher.SearchIssues(ctx, keywords, maxResults)
	if err != nil {
		log.Printf("[duplicate_finder] Search degraded, continuing without candidates: %v", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(issues))
	for _, issue := range issues {
		score := f.scorer.Score(rep.Summary, issue.Title)
		candidates = append(candidates, Candidate{
			Number:         issue.Number,
			Title:          issue.Title,
			URL:            issue.URL,
			State:          issue.State,
			Score:          score,
			HighConfidence: score >= f.threshold && issue.State == "open",
		})
	}

	// The search already orders by updated-desc; a stable sort preserves
	// that order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates
}

// HasHighConfidence reports whether any candidate gates filing.
func HasHighConfidence(candidates []Candidate) bool {
	for _, c := range candidates {
		if c.HighConfidence {
			return true
		}
	}
	return false
}

// keywords combines summary keywords with step keywords, summary first.
func (f *Finder) keywords(rep *report.BugReport) []string {
	keywords := ExtractKeywords(rep.Summary, searchKeywordLimit)
	if len(keywords) < searchKeywordLimit && len(rep.Steps) > 0 {
		seen := make(map[string]bool, len(keywords))
		for _, k := range keywords {
			seen[k] = true
		}
		for _, k := range ExtractKeywords(strings.Join(rep.Steps, " "), searchKeywordLimit) {
			if len(keywords) >= searchKeywordLimit {
				break
			}
			if !seen[k] {
				seen[k] = true
				keywords = append(keywords, k)
			}
		}
	}
	return keywords
}
