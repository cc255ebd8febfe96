package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LachyFS/kanban-md/internal/gh"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetRoundTrip(t *testing.T) {
	db := newTestDB(t)

	thread := &gh.Thread{
		Issue: gh.Issue{
			Number:    12,
			Title:     "Cached issue",
			Body:      "with a body",
			State:     "open",
			UpdatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		Comments: []gh.Comment{
			{ID: 1, User: gh.User{Login: "alice"}, Body: "first"},
		},
	}
	require.NoError(t, db.Put("owner/repo", 12, `"etag-1"`, thread))

	entry, err := db.Get("owner/repo", 12)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, "owner/repo", entry.Repo)
	assert.Equal(t, 12, entry.Number)
	assert.Equal(t, `"etag-1"`, entry.ETag)
	assert.WithinDuration(t, time.Now(), entry.FetchedAt, time.Minute)
	assert.Equal(t, "Cached issue", entry.Thread.Issue.Title)
	require.Len(t, entry.Thread.Comments, 1)
	assert.Equal(t, "alice", entry.Thread.Comments[0].User.Login)
}

func TestGetMissing(t *testing.T) {
	db := newTestDB(t)

	entry, err := db.Get("owner/repo", 404)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestPutReplaces(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Put("owner/repo", 3, `"old"`, &gh.Thread{Issue: gh.Issue{Number: 3, Title: "v1"}}))
	require.NoError(t, db.Put("owner/repo", 3, `"new"`, &gh.Thread{Issue: gh.Issue{Number: 3, Title: "v2"}}))

	entry, err := db.Get("owner/repo", 3)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, `"new"`, entry.ETag)
	assert.Equal(t, "v2", entry.Thread.Issue.Title)
}

func TestEntriesKeyedByRepo(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Put("owner/alpha", 1, `"a"`, &gh.Thread{Issue: gh.Issue{Number: 1, Title: "alpha"}}))
	require.NoError(t, db.Put("owner/beta", 1, `"b"`, &gh.Thread{Issue: gh.Issue{Number: 1, Title: "beta"}}))

	entry, err := db.Get("owner/alpha", 1)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "alpha", entry.Thread.Issue.Title)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Put("owner/repo", 8, `"etag"`, &gh.Thread{Issue: gh.Issue{Number: 8, Title: "survives"}}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	entry, err := db.Get("owner/repo", 8)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "survives", entry.Thread.Issue.Title)
}
