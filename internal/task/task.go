package task

import (
	"regexp"
	"strings"
	"time"
)

// RemoteLink ties a record to the GitHub issue it mirrors.
// SyncedAt is the instant of the last successful reconciliation and is the
// pivot for all conflict decisions; it only ever moves forward.
type RemoteLink struct {
	ID       int       `yaml:"id"`
	Repo     string    `yaml:"repo"`
	URL      string    `yaml:"url,omitempty"`
	SyncedAt time.Time `yaml:"synced"`
}

// Record is a single task on the board, backed by one markdown file.
// The ID is derived from the title at creation time and never changes;
// FilePath always resolves to the directory implied by Status.
type Record struct {
	ID          string
	Status      Status
	Priority    string
	Assignee    string
	DueDate     string
	Labels      []string
	Created     time.Time
	Modified    time.Time
	CompletedAt *time.Time
	Content     string
	FilePath    string
	Remote      *RemoteLink
}

var headingRe = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)

// New creates a local record with the given title and body.
// The record id is a slug of the title.
func New(title, body string, status Status, now time.Time) *Record {
	r := &Record{
		ID:       Slugify(title),
		Status:   StatusBacklog,
		Content:  JoinContent(title, body),
		Created:  now,
		Modified: now,
	}
	r.SetStatus(status, now)
	return r
}

// Title returns the record's title: the first heading line of its content.
func (r *Record) Title() string {
	title, _ := SplitContent(r.Content)
	return title
}

// Body returns the record's content with the title heading stripped.
func (r *Record) Body() string {
	_, body := SplitContent(r.Content)
	return body
}

// SetStatus changes the record's workflow status and maintains CompletedAt:
// set when entering the terminal state, cleared when leaving it.
// Callers bump Modified themselves; a relocation to the matching status
// directory must follow in the same operation.
func (r *Record) SetStatus(status Status, now time.Time) {
	if status == r.Status {
		return
	}
	if status.Terminal() {
		t := now
		r.CompletedAt = &t
	} else if r.Status.Terminal() {
		r.CompletedAt = nil
	}
	r.Status = status
}

// Touch bumps the modified timestamp after a local edit.
func (r *Record) Touch(now time.Time) {
	r.Modified = now
}

// Linked reports whether the record mirrors a remote issue in the given
// repository. Records linked to a different repository are ignored during
// reconciliation.
func (r *Record) Linked(repo string) bool {
	return r.Remote != nil && r.Remote.Repo == repo
}

// SplitContent splits markdown content into title and body.
// The first line matching a heading pattern is the title; everything after
// that line, trimmed, is the body. Content with no heading yields an empty
// title and the whole content as body.
func SplitContent(content string) (title, body string) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			return m[1], strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	return "", strings.TrimSpace(content)
}

// JoinContent is the inverse of SplitContent: "# title\n\nbody", or the
// bare heading when the body is empty.
func JoinContent(title, body string) string {
	if strings.TrimSpace(body) == "" {
		return "# " + title
	}
	return "# " + title + "\n\n" + strings.TrimSpace(body)
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a stable file-safe id from a title.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
