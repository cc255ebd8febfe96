package sync

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/LachyFS/kanban-md/internal/task"
)

// conflictsDir sits under the board root and holds the losing side of
// resolved conflicts.
const conflictsDir = ".conflicts"

// backupConflict saves the local version of a record before a pull
// overwrites it. Only called when both sides changed and the remote won.
// Files land at <root>/.conflicts/<id>_<timestamp>.md; a backup failure is
// not fatal to the pull, the caller just logs it.
func (e *Engine) backupConflict(local *task.Record) error {
	dir := filepath.Join(e.store.Root(), conflictsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create conflicts directory: %w", err)
	}

	data, err := task.Marshal(local)
	if err != nil {
		return err
	}

	timestamp := e.nowFn().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.md", local.ID, timestamp))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write conflict backup: %w", err)
	}

	e.log.Info().Str("id", local.ID).Str("path", path).Msg("backed up local changes before pull")
	return nil
}
