package gh

import (
	"errors"
	"fmt"
	"time"
)

// ErrAuthRequired is returned when no GitHub credential can be obtained.
// It is fatal to a sync pass.
var ErrAuthRequired = errors.New("github authentication required")

// APIError is a non-success response from the GitHub API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %s %s: %d - %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// RateLimitError is a 403 whose rate-limit-remaining header reads zero.
// It signals "stop, don't retry now" rather than "this request is
// malformed"; callers abort the remainder of the pass and retry later.
type RateLimitError struct {
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded, resets at %s", e.Reset.Format(time.RFC3339))
}
