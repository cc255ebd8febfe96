// Package gh provides a GitHub API client for interacting with issues.
package gh

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/LachyFS/kanban-md/internal/logging"
)

const (
	apiBaseURL = "https://api.github.com"
	userAgent  = "kanban-md"

	perPage = 100
	// maxPages caps a fetch at two pages of 100 issues. Fixed policy,
	// not a soft limit.
	maxPages = 2
)

// TokenFunc supplies a bearer token. The client does not cache or refresh
// tokens itself; it asks for a fresh one per call and fails with
// ErrAuthRequired when none can be obtained.
type TokenFunc func() (string, error)

// Label represents a GitHub issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// User represents a GitHub user.
type User struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Reactions holds the reaction counts GitHub attaches to issues and comments.
type Reactions struct {
	TotalCount int `json:"total_count"`
	PlusOne    int `json:"+1"`
	MinusOne   int `json:"-1"`
	Laugh      int `json:"laugh"`
	Hooray     int `json:"hooray"`
	Confused   int `json:"confused"`
	Heart      int `json:"heart"`
	Rocket     int `json:"rocket"`
	Eyes       int `json:"eyes"`
}

// Issue represents a GitHub issue.
type Issue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	Labels    []Label    `json:"labels"`
	User      User       `json:"user"`
	Assignee  *User      `json:"assignee"`
	Reactions Reactions  `json:"reactions"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`

	// Non-nil when the "issue" is actually a pull request; the list
	// endpoint returns both and we filter PRs out.
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

// AssigneeLogin returns the assignee's login, or "" when unassigned.
func (i *Issue) AssigneeLogin() string {
	if i.Assignee == nil {
		return ""
	}
	return i.Assignee.Login
}

// LabelNames returns the issue's label names.
func (i *Issue) LabelNames() []string {
	names := make([]string, len(i.Labels))
	for n, l := range i.Labels {
		names[n] = l.Name
	}
	return names
}

// Comment represents a GitHub issue comment.
type Comment struct {
	ID        int64     `json:"id"`
	User      User      `json:"user"`
	Body      string    `json:"body"`
	Reactions Reactions `json:"reactions"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Thread is a single issue together with its comment thread.
type Thread struct {
	Issue    Issue
	Comments []Comment
}

// IssueUpdate is the payload pushed to an issue: title, body, and state.
type IssueUpdate struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	State string `json:"state"`
}

// Client is a GitHub API client.
type Client struct {
	tokens     TokenFunc
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a GitHub API client that obtains credentials from tokens.
func New(tokens TokenFunc) *Client {
	return NewWithBaseURL(tokens, apiBaseURL)
}

// NewWithBaseURL creates a GitHub API client with a custom base URL (for testing).
func NewWithBaseURL(tokens TokenFunc, baseURL string) *Client {
	return &Client{
		tokens:     tokens,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.Component("gh"),
	}
}

// doRequest performs an HTTP request with a freshly obtained credential and
// returns the response. A non-empty etag makes the request conditional.
// Every request goes through here so the header contract lives in one place.
func (c *Client) doRequest(method, url string, body io.Reader, etag string) (*http.Response, error) {
	token, err := c.tokens()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// responseError converts a non-success response into a typed error,
// distinguishing rate-limit exhaustion from ordinary API failures.
// Consumes and closes the body.
func responseError(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		reset := time.Now()
		if secs, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			reset = time.Unix(secs, 0)
		}
		return &RateLimitError{Reset: reset}
	}

	return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(body)}
}

// ListIssues fetches the repository's issues (all states, pull requests
// excluded), paginated at 100 per page and capped at two pages.
func (c *Client) ListIssues(repo string) ([]Issue, error) {
	var all []Issue

	for page := 1; page <= maxPages; page++ {
		path := fmt.Sprintf("/repos/%s/issues?state=all&per_page=%d&page=%d", repo, perPage, page)
		resp, err := c.doRequest("GET", c.baseURL+path, nil, "")
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			return nil, responseError("GET", path, resp)
		}

		var issues []Issue
		if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		resp.Body.Close()

		for _, issue := range issues {
			if issue.PullRequest != nil {
				continue
			}
			all = append(all, issue)
		}

		if len(issues) < perPage {
			break
		}
	}

	c.log.Debug().Str("repo", repo).Int("count", len(all)).Msg("fetched issues")
	return all, nil
}

// GetThread fetches a single issue and its full comment thread, using a
// conditional request on the issue. Returns (nil, etag, nil) on 304 Not
// Modified; otherwise the thread and the new ETag.
func (c *Client) GetThread(repo string, number int, etag string) (*Thread, string, error) {
	path := fmt.Sprintf("/repos/%s/issues/%d", repo, number)

	resp, err := c.doRequest("GET", c.baseURL+path, nil, etag)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, etag, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", responseError("GET", path, resp)
	}

	var issue Issue
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		resp.Body.Close()
		return nil, "", fmt.Errorf("failed to decode response: %w", err)
	}
	newEtag := resp.Header.Get("ETag")
	resp.Body.Close()

	comments, err := c.listComments(repo, number)
	if err != nil {
		return nil, "", err
	}

	return &Thread{Issue: issue, Comments: comments}, newEtag, nil
}

// listComments fetches all comments for an issue, 100 per page.
func (c *Client) listComments(repo string, number int) ([]Comment, error) {
	var all []Comment

	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/issues/%d/comments?per_page=%d&page=%d", repo, number, perPage, page)
		resp, err := c.doRequest("GET", c.baseURL+path, nil, "")
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			return nil, responseError("GET", path, resp)
		}

		var comments []Comment
		if err := json.NewDecoder(resp.Body).Decode(&comments); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		resp.Body.Close()

		all = append(all, comments...)
		if len(comments) < perPage {
			break
		}
	}

	return all, nil
}

// UpdateIssue pushes a record's title, body, and state to the issue.
func (c *Client) UpdateIssue(repo string, number int, update IssueUpdate) error {
	path := fmt.Sprintf("/repos/%s/issues/%d", repo, number)

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := c.doRequest("PATCH", c.baseURL+path, bytes.NewReader(payload), "")
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return responseError("PATCH", path, resp)
	}
	resp.Body.Close()

	c.log.Debug().Str("repo", repo).Int("number", number).Msg("pushed issue update")
	return nil
}
