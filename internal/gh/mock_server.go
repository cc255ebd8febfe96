package gh

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockServer provides a fake GitHub API for testing.
type MockServer struct {
	*httptest.Server
	mu       sync.RWMutex
	issues   map[int]*Issue   // issue number -> issue
	comments map[int][]Comment // issue number -> comments

	nextErrStatus  int
	nextErrBody    string
	patchErrStatus int
	patchErrBody   string
	rateLimited    bool
	rateReset      time.Time
}

// NewMockServer creates a mock GitHub API server.
func NewMockServer() *MockServer {
	m := &MockServer{
		issues:   make(map[int]*Issue),
		comments: make(map[int][]Comment),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		if m.maybeFail(w) {
			return
		}

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/repos/"), "/")
		if len(parts) < 3 || parts[2] != "issues" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		switch {
		case len(parts) == 3 && r.Method == http.MethodGet:
			m.handleListIssues(w, r)
		case len(parts) == 4:
			number, err := strconv.Atoi(parts[3])
			if err != nil {
				http.Error(w, "invalid issue number", http.StatusBadRequest)
				return
			}
			switch r.Method {
			case http.MethodGet:
				m.handleGetIssue(w, r, number)
			case http.MethodPatch:
				m.handleUpdateIssue(w, r, number)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
		case len(parts) == 5 && parts[4] == "comments" && r.Method == http.MethodGet:
			number, err := strconv.Atoi(parts[3])
			if err != nil {
				http.Error(w, "invalid issue number", http.StatusBadRequest)
				return
			}
			m.handleListComments(w, r, number)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})

	m.Server = httptest.NewServer(mux)
	return m
}

// AddIssue adds an issue to the mock server.
func (m *MockServer) AddIssue(issue *Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[issue.Number] = issue
}

// AddComment appends a comment to an issue's thread.
func (m *MockServer) AddComment(number int, comment Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[number] = append(m.comments[number], comment)
}

// GetIssue retrieves an issue (for test assertions).
func (m *MockServer) GetIssue(number int) *Issue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.issues[number]
}

// SetNextError forces the next request to fail with the given status and body.
func (m *MockServer) SetNextError(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErrStatus = status
	m.nextErrBody = body
}

// SetPatchError forces the next issue update to fail with the given status
// and body, leaving reads untouched.
func (m *MockServer) SetPatchError(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patchErrStatus = status
	m.patchErrBody = body
}

// SetRateLimited makes every subsequent request answer 403 with an
// exhausted rate-limit header until cleared.
func (m *MockServer) SetRateLimited(reset time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited = true
	m.rateReset = reset
}

// ClearRateLimited restores normal responses.
func (m *MockServer) ClearRateLimited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited = false
}

// Reset clears all issues and comments.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = make(map[int]*Issue)
	m.comments = make(map[int][]Comment)
}

// maybeFail serves a forced error or rate-limit response if one is armed.
func (m *MockServer) maybeFail(w http.ResponseWriter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rateLimited {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(m.rateReset.Unix(), 10))
		http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
		return true
	}

	if m.nextErrStatus != 0 {
		status, body := m.nextErrStatus, m.nextErrBody
		m.nextErrStatus, m.nextErrBody = 0, ""
		http.Error(w, body, status)
		return true
	}

	return false
}

func (m *MockServer) handleListIssues(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	numbers := make([]int, 0, len(m.issues))
	for n := range m.issues {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	perPage := 100
	if pp := r.URL.Query().Get("per_page"); pp != "" {
		perPage, _ = strconv.Atoi(pp)
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page, _ = strconv.Atoi(p)
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(numbers) {
		start = len(numbers)
	}
	if end > len(numbers) {
		end = len(numbers)
	}

	issues := make([]*Issue, 0, end-start)
	for _, n := range numbers[start:end] {
		issues = append(issues, m.issues[n])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(issues)
}

func (m *MockServer) handleGetIssue(w http.ResponseWriter, r *http.Request, number int) {
	m.mu.RLock()
	issue, ok := m.issues[number]
	m.mu.RUnlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	etag := fmt.Sprintf(`"%d-%d"`, number, issue.UpdatedAt.UnixNano())
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	json.NewEncoder(w).Encode(issue)
}

func (m *MockServer) handleListComments(w http.ResponseWriter, r *http.Request, number int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	comments := m.comments[number]
	if comments == nil {
		comments = []Comment{}
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page, _ = strconv.Atoi(p)
	}
	if page > 1 {
		comments = []Comment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

func (m *MockServer) handleUpdateIssue(w http.ResponseWriter, r *http.Request, number int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.patchErrStatus != 0 {
		status, body := m.patchErrStatus, m.patchErrBody
		m.patchErrStatus, m.patchErrBody = 0, ""
		http.Error(w, body, status)
		return
	}

	issue, ok := m.issues[number]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var update IssueUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if update.Title != "" {
		issue.Title = update.Title
	}
	issue.Body = update.Body
	if update.State == "open" || update.State == "closed" {
		issue.State = update.State
	}
	issue.UpdatedAt = time.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(issue)
}
