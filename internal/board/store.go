// Package board persists task records as markdown files under a root
// directory, one subdirectory per workflow status.
package board

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LachyFS/kanban-md/internal/logging"
	"github.com/LachyFS/kanban-md/internal/task"
)

// FSError wraps a filesystem failure with the operation and path involved.
type FSError struct {
	Op   string
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("board: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FSError) Unwrap() error {
	return e.Err
}

// Store maps statuses to directories under a board root and performs all
// file reads, writes, and relocations.
type Store struct {
	root string
	log  zerolog.Logger
}

// NewStore creates a store rooted at the given directory.
// Call EnsureLayout before first use.
func NewStore(root string) *Store {
	return &Store{root: root, log: logging.Component("board")}
}

// Root returns the board root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory owning the given status.
func (s *Store) Dir(status task.Status) string {
	return filepath.Join(s.root, string(status))
}

// PathFor returns the path a file with the given name has under the given
// status. Deterministic, no filesystem access.
func (s *Store) PathFor(status task.Status, filename string) string {
	return filepath.Join(s.root, string(status), filename)
}

// EnsureLayout idempotently creates every status directory under the root.
// Safe to call repeatedly, never destructive.
func (s *Store) EnsureLayout() error {
	for _, status := range task.Statuses() {
		dir := s.Dir(status)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &FSError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	return nil
}

// StatusFromPath infers a status from a path's directory component relative
// to the root. Returns false if the path does not sit directly under a
// recognized status directory.
func (s *Store) StatusFromPath(path string) (task.Status, bool) {
	dir := filepath.Dir(path)
	rel, err := filepath.Rel(s.root, dir)
	if err != nil {
		return "", false
	}
	status := task.Status(rel)
	if !status.Valid() {
		return "", false
	}
	return status, true
}

// Relocate moves the file at currentPath into the directory owned by
// newStatus and returns the new path. No-op if the computed target equals
// the current path. If a file already exists at the target name, a numeric
// suffix is appended before the extension until a free name is found; the
// rename itself is a same-volume atomic move.
func (s *Store) Relocate(currentPath string, newStatus task.Status) (string, error) {
	target := s.PathFor(newStatus, filepath.Base(currentPath))
	if target == currentPath {
		return currentPath, nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &FSError{Op: "mkdir", Path: dir, Err: err}
	}

	target = availableName(target)
	if err := os.Rename(currentPath, target); err != nil {
		return "", &FSError{Op: "rename", Path: currentPath, Err: err}
	}

	s.log.Debug().Str("from", currentPath).Str("to", target).Msg("relocated record")
	return target, nil
}

// availableName returns path if nothing exists there, otherwise the first
// free candidate with a numeric suffix before the extension ("-1", "-2", ...).
// Single-writer assumption: an existence check before the rename suffices.
func availableName(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Write persists the record to its FilePath. The write goes through a
// temporary file in the same directory followed by a rename, so readers
// never observe a half-written record.
func (s *Store) Write(r *task.Record) error {
	if r.FilePath == "" {
		return &FSError{Op: "write", Path: "", Err: fmt.Errorf("record %q has no file path", r.ID)}
	}

	data, err := task.Marshal(r)
	if err != nil {
		return err
	}

	tmp := r.FilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &FSError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, r.FilePath); err != nil {
		os.Remove(tmp)
		return &FSError{Op: "rename", Path: r.FilePath, Err: err}
	}
	return nil
}

// Create assigns the record a collision-free path in its status directory
// and writes it. Sets r.FilePath.
func (s *Store) Create(r *task.Record) error {
	dir := s.Dir(r.Status)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &FSError{Op: "mkdir", Path: dir, Err: err}
	}

	path := availableName(s.PathFor(r.Status, r.ID+".md"))
	// Collision suffixes become part of the id: the id always equals the
	// file name stem.
	r.ID = strings.TrimSuffix(filepath.Base(path), ".md")
	r.FilePath = path
	if err := s.Write(r); err != nil {
		r.FilePath = ""
		return err
	}
	return nil
}

// Load reads and parses the task file at path. The record's ID comes from
// the file name; a header with no status falls back to the directory the
// file sits in.
func (s *Store) Load(path string) (*task.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FSError{Op: "read", Path: path, Err: err}
	}

	r, err := task.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	r.ID = strings.TrimSuffix(filepath.Base(path), ".md")
	r.FilePath = path
	if r.Status == "" {
		if status, ok := s.StatusFromPath(path); ok {
			r.Status = status
		}
	}
	return r, nil
}

// LoadAll reads every task file on the board, sorted by id for stable
// ordering. Files that fail to parse are logged and skipped so one corrupt
// record cannot hide the rest of the board.
func (s *Store) LoadAll() ([]*task.Record, error) {
	var records []*task.Record
	for _, status := range task.Statuses() {
		entries, err := os.ReadDir(s.Dir(status))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, &FSError{Op: "readdir", Path: s.Dir(status), Err: err}
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			path := s.PathFor(status, entry.Name())
			r, err := s.Load(path)
			if err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable record")
				continue
			}
			records = append(records, r)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
