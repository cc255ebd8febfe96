package gh

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() (string, error) {
	return "test-token", nil
}

func TestListIssues_FiltersPullRequests(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.AddIssue(&Issue{Number: 1, Title: "Real issue", State: "open"})
	mockGH.AddIssue(&Issue{Number: 2, Title: "A PR", State: "open", PullRequest: &struct{}{}})

	client := NewWithBaseURL(testTokens, mockGH.URL)
	issues, err := client.ListIssues("owner/repo")
	require.NoError(t, err)

	require.Len(t, issues, 1)
	assert.Equal(t, 1, issues[0].Number)
}

func TestListIssues_PaginationCap(t *testing.T) {
	// A server with endless full pages: the client must stop after two.
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[")
		for i := 0; i < 100; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"number":%s%02d,"title":"issue","state":"open"}`, page, i)
		}
		fmt.Fprint(w, "]")
	}))
	defer srv.Close()

	client := NewWithBaseURL(testTokens, srv.URL)
	issues, err := client.ListIssues("owner/repo")
	require.NoError(t, err)

	assert.Len(t, issues, 200)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestListIssues_RateLimited(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	mockGH.SetRateLimited(reset)

	client := NewWithBaseURL(testTokens, mockGH.URL)
	_, err := client.ListIssues("owner/repo")
	require.Error(t, err)

	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.True(t, rle.Reset.Equal(reset), "reset time should come from the header")
}

func TestListIssues_APIError(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()
	mockGH.SetNextError(500, "boom")

	client := NewWithBaseURL(testTokens, mockGH.URL)
	_, err := client.ListIssues("owner/repo")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, "GET", apiErr.Method)
}

func TestListIssues_AuthRequired(t *testing.T) {
	client := NewWithBaseURL(func() (string, error) {
		return "", errors.New("no token anywhere")
	}, "http://unused.invalid")

	_, err := client.ListIssues("owner/repo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestListIssues_FreshTokenPerCall(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()
	mockGH.AddIssue(&Issue{Number: 1, Title: "x", State: "open"})

	var calls int32
	client := NewWithBaseURL(func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "tok", nil
	}, mockGH.URL)

	_, err := client.ListIssues("owner/repo")
	require.NoError(t, err)
	_, err = client.ListIssues("owner/repo")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestUpdateIssue(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.AddIssue(&Issue{
		Number: 42,
		Title:  "Original Title",
		Body:   "Original body",
		State:  "open",
	})

	client := NewWithBaseURL(testTokens, mockGH.URL)
	err := client.UpdateIssue("owner/repo", 42, IssueUpdate{
		Title: "New Title",
		Body:  "New body",
		State: "closed",
	})
	require.NoError(t, err)

	updated := mockGH.GetIssue(42)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "New body", updated.Body)
	assert.Equal(t, "closed", updated.State)
}

func TestUpdateIssue_NotFound(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	client := NewWithBaseURL(testTokens, mockGH.URL)
	err := client.UpdateIssue("owner/repo", 999, IssueUpdate{Title: "x", Body: "y", State: "open"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestGetThread(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.AddIssue(&Issue{Number: 7, Title: "With comments", State: "open", UpdatedAt: time.Now().UTC()})
	mockGH.AddComment(7, Comment{ID: 1, User: User{Login: "alice"}, Body: "first"})
	mockGH.AddComment(7, Comment{ID: 2, User: User{Login: "bob"}, Body: "second"})

	client := NewWithBaseURL(testTokens, mockGH.URL)
	thread, etag, err := client.GetThread("owner/repo", 7, "")
	require.NoError(t, err)
	require.NotNil(t, thread)
	assert.NotEmpty(t, etag)
	assert.Equal(t, "With comments", thread.Issue.Title)
	require.Len(t, thread.Comments, 2)
	assert.Equal(t, "alice", thread.Comments[0].User.Login)
}

func TestGetThread_ConditionalRequestHeaders(t *testing.T) {
	// The conditional fetch carries the same header contract as every
	// other request, plus If-None-Match.
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/comments") {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, "[]")
			return
		}
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"fresh"`)
		fmt.Fprint(w, `{"number":7,"title":"x","state":"open"}`)
	}))
	defer srv.Close()

	client := NewWithBaseURL(testTokens, srv.URL)
	_, _, err := client.GetThread("owner/repo", 7, `"stale"`)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", got.Get("Authorization"))
	assert.Equal(t, "application/vnd.github.v3+json", got.Get("Accept"))
	assert.Equal(t, "kanban-md", got.Get("User-Agent"))
	assert.Equal(t, `"stale"`, got.Get("If-None-Match"))
}

func TestGetThread_NotModified(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()
	mockGH.AddIssue(&Issue{Number: 7, Title: "Stable", State: "open", UpdatedAt: time.Now().UTC()})

	client := NewWithBaseURL(testTokens, mockGH.URL)
	_, etag, err := client.GetThread("owner/repo", 7, "")
	require.NoError(t, err)

	thread, sameEtag, err := client.GetThread("owner/repo", 7, etag)
	require.NoError(t, err)
	assert.Nil(t, thread, "unchanged issue should yield a nil thread")
	assert.Equal(t, etag, sameEtag)
}
