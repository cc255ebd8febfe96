package board

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LachyFS/kanban-md/internal/task"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	require.NoError(t, s.EnsureLayout())
	return s
}

func TestEnsureLayout_Idempotent(t *testing.T) {
	s := newTestStore(t)

	// Second call must not fail or disturb existing files.
	path := s.PathFor(task.StatusTodo, "keep.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, s.EnsureLayout())

	_, err := os.Stat(path)
	assert.NoError(t, err)

	for _, status := range task.Statuses() {
		info, err := os.Stat(s.Dir(status))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestStatusFromPath(t *testing.T) {
	s := newTestStore(t)

	status, ok := s.StatusFromPath(s.PathFor(task.StatusReview, "a.md"))
	require.True(t, ok)
	assert.Equal(t, task.StatusReview, status)

	_, ok = s.StatusFromPath(filepath.Join(s.Root(), "elsewhere", "a.md"))
	assert.False(t, ok)

	// Nested below a status directory does not count.
	_, ok = s.StatusFromPath(filepath.Join(s.Dir(task.StatusTodo), "nested", "a.md"))
	assert.False(t, ok)
}

func TestRelocate_Noop(t *testing.T) {
	s := newTestStore(t)

	path := s.PathFor(task.StatusTodo, "abc.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	newPath, err := s.Relocate(path, task.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, path, newPath)
}

func TestRelocate_Moves(t *testing.T) {
	s := newTestStore(t)

	path := s.PathFor(task.StatusTodo, "abc.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	newPath, err := s.Relocate(path, task.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, s.PathFor(task.StatusDone, "abc.md"), newPath)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "old path should no longer exist")
	_, err = os.Stat(newPath)
	assert.NoError(t, err)
}

func TestRelocate_CollisionSuffix(t *testing.T) {
	s := newTestStore(t)

	a := s.PathFor(task.StatusTodo, "abc.md")
	b := s.PathFor(task.StatusReview, "abc.md")
	require.NoError(t, os.WriteFile(a, []byte("from todo"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("from review"), 0644))

	pathA, err := s.Relocate(a, task.StatusDone)
	require.NoError(t, err)
	pathB, err := s.Relocate(b, task.StatusDone)
	require.NoError(t, err)

	// Two distinct files, neither overwritten.
	assert.NotEqual(t, pathA, pathB)
	assert.Equal(t, s.PathFor(task.StatusDone, "abc.md"), pathA)
	assert.Equal(t, s.PathFor(task.StatusDone, "abc-1.md"), pathB)

	dataA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	dataB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, "from todo", string(dataA))
	assert.Equal(t, "from review", string(dataB))
}

func TestRelocate_MissingSource(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Relocate(s.PathFor(task.StatusTodo, "ghost.md"), task.StatusDone)
	require.Error(t, err)

	var fsErr *FSError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "rename", fsErr.Op)
}

func TestCreateWriteLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rec := task.New("Write docs", "All of them.", task.StatusTodo, now)
	rec.Labels = []string{"docs"}
	require.NoError(t, s.Create(rec))
	assert.Equal(t, s.PathFor(task.StatusTodo, "write-docs.md"), rec.FilePath)

	loaded, err := s.Load(rec.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "write-docs", loaded.ID)
	assert.Equal(t, task.StatusTodo, loaded.Status)
	assert.Equal(t, "Write docs", loaded.Title())
	assert.Equal(t, []string{"docs"}, loaded.Labels)
	assert.Equal(t, rec.FilePath, loaded.FilePath)
}

func TestCreate_CollisionGetsNewID(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	first := task.New("Same title", "", task.StatusBacklog, now)
	second := task.New("Same title", "", task.StatusBacklog, now)
	require.NoError(t, s.Create(first))
	require.NoError(t, s.Create(second))

	assert.Equal(t, "same-title", first.ID)
	assert.Equal(t, "same-title-1", second.ID)
	assert.NotEqual(t, first.FilePath, second.FilePath)
}

func TestLoadAll_SkipsCorruptFiles(t *testing.T) {
	s := newTestStore(t)

	good := task.New("Good one", "", task.StatusTodo, time.Now())
	require.NoError(t, s.Create(good))
	require.NoError(t, os.WriteFile(s.PathFor(task.StatusTodo, "broken.md"), []byte("no front matter"), 0644))

	records, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "good-one", records[0].ID)
}

func TestLoad_InfersStatusFromDirectory(t *testing.T) {
	s := newTestStore(t)

	// A header without a status falls back to the directory.
	data := "---\ncreated: 2026-01-01T00:00:00Z\nmodified: 2026-01-01T00:00:00Z\n---\n\n# Old format\n"
	path := s.PathFor(task.StatusReview, "old-format.md")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	r, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, task.StatusReview, r.Status)
}
