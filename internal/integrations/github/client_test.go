package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

// newTestClient points a Client at a local httptest server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api := gogithub.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	api.BaseURL = base

	return &Client{client: api, owner: "Mudlet", repo: "Mudlet"}, server
}

func TestListLabelsCaches(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/Mudlet/Mudlet/labels", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[{"name":"OS:Windows"},{"name":"high"},{"name":"mapper bug"}]`)
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	first, err := client.ListLabels(ctx)
	if err != nil {
		t.Fatalf("ListLabels failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 labels, got %v", first)
	}

	second, err := client.ListLabels(ctx)
	if err != nil {
		t.Fatalf("second ListLabels failed: %v", err)
	}
	if len(second) != 3 {
		t.Fatalf("expected cached labels, got %v", second)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 API call, got %d", got)
	}
}

func TestSearchIssuesLimitsKeywordsAndResults(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"total_count":3,"items":[
			{"number":1,"title":"crash one","html_url":"https://example.com/1","state":"open"},
			{"number":2,"title":"crash two","html_url":"https://example.com/2","state":"closed"},
			{"number":3,"title":"crash three","html_url":"https://example.com/3","state":"open"}
		]}`)
	})

	client, _ := newTestClient(t, mux)

	results, err := client.SearchIssues(context.Background(),
		[]string{"one", "two", "three", "four", "five", "six"}, 2)
	if err != nil {
		t.Fatalf("SearchIssues failed: %v", err)
	}

	wantQuery := "one two three four five repo:Mudlet/Mudlet is:issue"
	if gotQuery != wantQuery {
		t.Errorf("query = %q, want %q", gotQuery, wantQuery)
	}
	if len(results) != 2 {
		t.Errorf("expected results capped at 2, got %d", len(results))
	}
	if results[0].Number != 1 || results[0].State != "open" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestCreateIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/Mudlet/Mudlet/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number":4242,"html_url":"https://github.com/Mudlet/Mudlet/issues/4242"}`)
	})

	client, _ := newTestClient(t, mux)

	ref, err := client.CreateIssue(context.Background(), "Crash on exit", "body", []string{"high"})
	if err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if ref.Number != 4242 {
		t.Errorf("expected issue 4242, got %d", ref.Number)
	}
}

func TestCreateIssueRejectsEmptyTitle(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	if _, err := client.CreateIssue(context.Background(), "  ", "body", nil); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(err error) bool
	}{
		{
			name:   "401 is AuthError",
			status: http.StatusUnauthorized,
			check:  func(err error) bool { _, ok := err.(*AuthError); return ok },
		},
		{
			name:   "422 is ValidationError",
			status: http.StatusUnprocessableEntity,
			check:  func(err error) bool { _, ok := err.(*ValidationError); return ok },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/Mudlet/Mudlet/issues", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message":"nope"}`)
			})

			client, _ := newTestClient(t, mux)
			_, err := client.CreateIssue(context.Background(), "title", "body", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type: %T (%v)", err, err)
			}
		})
	}
}

func TestRateLimitClassification(t *testing.T) {
	reset := time.Now().Add(2 * time.Minute).Unix()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/Mudlet/Mudlet/issues", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(reset))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	})

	client, _ := newTestClient(t, mux)
	_, err := client.CreateIssue(context.Background(), "title", "body", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	rlErr, ok := err.(*RateLimitError)
	if !ok {
		t.Fatalf("expected *RateLimitError, got %T (%v)", err, err)
	}
	if rlErr.RetryAfter <= 0 {
		t.Errorf("expected positive RetryAfter, got %s", rlErr.RetryAfter)
	}
}

func TestNewClientValidatesRepo(t *testing.T) {
	for _, repo := range []string{"", "Mudlet", "/Mudlet", "Mudlet/"} {
		if _, err := NewClient(context.Background(), Credentials{Token: "x"}, repo); err == nil {
			t.Errorf("expected error for repo %q", repo)
		}
	}
}
