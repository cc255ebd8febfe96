package task

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// header is the YAML front matter block at the top of every task file.
type header struct {
	Status    string      `yaml:"status"`
	Priority  string      `yaml:"priority,omitempty"`
	Assignee  string      `yaml:"assignee,omitempty"`
	Due       string      `yaml:"due,omitempty"`
	Labels    []string    `yaml:"labels,omitempty"`
	Created   time.Time   `yaml:"created"`
	Modified  time.Time   `yaml:"modified"`
	Completed *time.Time  `yaml:"completed,omitempty"`
	Remote    *RemoteLink `yaml:"remote,omitempty"`
}

// Marshal renders a record as a markdown file: YAML front matter delimited
// by "---" lines, followed by the content whose first heading is the title.
func Marshal(r *Record) ([]byte, error) {
	h := header{
		Status:    string(r.Status),
		Priority:  r.Priority,
		Assignee:  r.Assignee,
		Due:       r.DueDate,
		Labels:    r.Labels,
		Created:   r.Created,
		Modified:  r.Modified,
		Completed: r.CompletedAt,
		Remote:    r.Remote,
	}

	meta, err := yaml.Marshal(&h)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString(delimiter + "\n")
	b.Write(meta)
	b.WriteString(delimiter + "\n\n")
	b.WriteString(strings.TrimRight(r.Content, "\n"))
	b.WriteString("\n")
	return []byte(b.String()), nil
}

// Unmarshal parses a task file into a record. The caller fills in ID and
// FilePath from the file's location. Front matter must be delimited by
// "---" on its own line at the start of the file.
func Unmarshal(data []byte) (*Record, error) {
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return nil, fmt.Errorf("missing front matter delimiter")
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unterminated front matter")
	}

	var h header
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &h); err != nil {
		return nil, fmt.Errorf("failed to parse front matter: %w", err)
	}

	r := &Record{
		Status:      Status(h.Status),
		Priority:    h.Priority,
		Assignee:    h.Assignee,
		DueDate:     h.Due,
		Labels:      h.Labels,
		Created:     h.Created,
		Modified:    h.Modified,
		CompletedAt: h.Completed,
		Remote:      h.Remote,
		Content:     strings.TrimSpace(strings.Join(lines[end+1:], "\n")),
	}
	return r, nil
}
