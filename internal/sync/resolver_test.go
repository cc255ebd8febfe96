package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LachyFS/kanban-md/internal/gh"
	"github.com/LachyFS/kanban-md/internal/task"
)

func TestResolve(t *testing.T) {
	syncedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := syncedAt.Add(-time.Hour)
	after := syncedAt.Add(time.Hour)
	later := syncedAt.Add(2 * time.Hour)

	record := func(modified time.Time) *task.Record {
		return &task.Record{
			ID:       "fix-login",
			Modified: modified,
			Remote:   &task.RemoteLink{ID: 12, Repo: "owner/repo", SyncedAt: syncedAt},
		}
	}

	tests := []struct {
		name   string
		local  *task.Record
		issue  gh.Issue
		action Action
	}{
		{
			name:   "unseen issue creates",
			local:  nil,
			issue:  gh.Issue{Number: 99, UpdatedAt: after},
			action: ActionCreate,
		},
		{
			name:   "neither side changed",
			local:  record(before),
			issue:  gh.Issue{Number: 12, UpdatedAt: before},
			action: ActionSkip,
		},
		{
			name:   "only remote changed",
			local:  record(before),
			issue:  gh.Issue{Number: 12, UpdatedAt: after},
			action: ActionPull,
		},
		{
			name:   "only local changed",
			local:  record(after),
			issue:  gh.Issue{Number: 12, UpdatedAt: before},
			action: ActionPush,
		},
		{
			name:   "both changed, local newer",
			local:  record(later),
			issue:  gh.Issue{Number: 12, UpdatedAt: after},
			action: ActionPush,
		},
		{
			name:   "both changed, remote newer",
			local:  record(after),
			issue:  gh.Issue{Number: 12, UpdatedAt: later},
			action: ActionPull,
		},
		{
			name:   "both changed, exact tie goes to remote",
			local:  record(after),
			issue:  gh.Issue{Number: 12, UpdatedAt: after},
			action: ActionPull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.action, Resolve(tt.local, tt.issue))
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "skip", ActionSkip.String())
	assert.Equal(t, "create", ActionCreate.String())
	assert.Equal(t, "pull", ActionPull.String())
	assert.Equal(t, "push", ActionPush.String())
	assert.Equal(t, "unknown", Action(42).String())
}
