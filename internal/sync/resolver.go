package sync

import (
	"github.com/LachyFS/kanban-md/internal/gh"
	"github.com/LachyFS/kanban-md/internal/task"
)

// Action is the per-record reconciliation decision.
type Action int

const (
	// ActionSkip means nothing changed on either side since the last sync.
	ActionSkip Action = iota
	// ActionCreate instantiates a local record from an unseen remote issue.
	ActionCreate
	// ActionPull overwrites local fields from the remote issue.
	ActionPull
	// ActionPush sends local fields to the remote issue.
	ActionPush
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionPull:
		return "pull"
	case ActionPush:
		return "push"
	default:
		return "unknown"
	}
}

// Resolve decides what to do for one (local record, remote issue) pair.
// The pivot is the record's last-synced instant: a side counts as changed
// when its own timestamp moved past it. When both sides changed, the newer
// side wins wholesale and the remote wins exact ties.
func Resolve(local *task.Record, issue gh.Issue) Action {
	if local == nil {
		return ActionCreate
	}

	syncedAt := local.Remote.SyncedAt
	remoteChanged := issue.UpdatedAt.After(syncedAt)
	localChanged := local.Modified.After(syncedAt)

	switch {
	case !remoteChanged && !localChanged:
		return ActionSkip
	case remoteChanged && !localChanged:
		return ActionPull
	case !remoteChanged && localChanged:
		return ActionPush
	default:
		if issue.UpdatedAt.Before(local.Modified) {
			return ActionPush
		}
		return ActionPull
	}
}
