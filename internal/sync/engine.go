// Package sync reconciles the local board against a GitHub repository's
// issues: one pass fetches every remote issue, resolves a per-record
// decision, and applies it to the board or pushes it back.
package sync

import (
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/LachyFS/kanban-md/internal/board"
	"github.com/LachyFS/kanban-md/internal/gh"
	"github.com/LachyFS/kanban-md/internal/logging"
	"github.com/LachyFS/kanban-md/internal/task"
)

var (
	// ErrSyncInProgress is returned when a pass is already running on
	// this engine instance.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrNoRepository is returned when no repository is configured and
	// auto-detection found none; the pass never starts.
	ErrNoRepository = errors.New("no repository configured or detectable")
)

// state is the engine's explicit lifecycle. Exactly one pass may be in
// flight per engine instance; the state gate only protects a single
// process.
type state int

const (
	stateIdle state = iota
	stateSyncing
)

// DetectFunc supplies a repository identifier when none is configured.
type DetectFunc func() (string, error)

// Engine runs synchronization passes between a board store and GitHub.
type Engine struct {
	store  *board.Store
	client *gh.Client
	repo   string // "owner/repo"
	login  string // authenticated user, for the assigned-to-me mapping
	detect DetectFunc

	log   zerolog.Logger
	nowFn func() time.Time

	mu gosync.Mutex
	st state
}

// NewEngine creates a sync engine. repo may be empty when detect is
// provided; detection then runs once at the start of the first pass.
func NewEngine(store *board.Store, client *gh.Client, repo, login string, detect DetectFunc) *Engine {
	return &Engine{
		store:  store,
		client: client,
		repo:   repo,
		login:  login,
		detect: detect,
		log:    logging.Component("sync"),
		nowFn:  time.Now,
	}
}

// Repo returns the repository the engine reconciles against, which may
// have been filled in by auto-detection.
func (e *Engine) Repo() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repo
}

// Sync runs one full synchronization pass. Engine-level failures (auth,
// rate limit, missing configuration) abort the pass; per-record failures
// land in the outcome's error list and processing continues. On a mid-pass
// abort the partial outcome is returned alongside the error, so
// already-applied records are still reported.
func (e *Engine) Sync() (*Outcome, error) {
	e.mu.Lock()
	if e.st == stateSyncing {
		e.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	if e.repo == "" {
		if e.detect != nil {
			if repo, err := e.detect(); err == nil {
				e.repo = repo
				e.log.Info().Str("repo", repo).Msg("auto-detected repository")
			}
		}
		if e.repo == "" {
			e.mu.Unlock()
			return nil, ErrNoRepository
		}
	}
	e.st = stateSyncing
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.st = stateIdle
		e.mu.Unlock()
	}()

	return e.runPass()
}

func (e *Engine) runPass() (*Outcome, error) {
	e.log.Debug().Str("repo", e.repo).Msg("starting sync pass")

	issues, err := e.client.ListIssues(e.repo)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	records, err := e.store.LoadAll()
	if err != nil {
		return nil, err
	}

	// Index linked records by remote id; consumed as issues are processed.
	// Records linked to a different repository are ignored.
	index := make(map[int]*task.Record)
	for _, r := range records {
		if r.Linked(e.repo) {
			index[r.Remote.ID] = r
		}
	}

	outcome := &Outcome{}
	for _, issue := range issues {
		local := index[issue.Number]
		delete(index, issue.Number)

		action := Resolve(local, issue)
		var applyErr error
		switch action {
		case ActionCreate:
			applyErr = e.applyCreate(issue, outcome)
		case ActionPull:
			applyErr = e.applyPull(local, issue, outcome)
		case ActionPush:
			applyErr = e.applyPush(local, outcome)
		case ActionSkip:
			e.log.Debug().Int("number", issue.Number).Msg("unchanged since last sync")
		}

		if applyErr != nil {
			id := ""
			if local != nil {
				id = local.ID
			}
			outcome.Errors = append(outcome.Errors, RecordError{ID: id, Number: issue.Number, Err: applyErr})

			if fatal(applyErr) {
				// Stop here; records applied before this point stand.
				return outcome, applyErr
			}
			e.log.Warn().Err(applyErr).Int("number", issue.Number).Msg("record failed, continuing")
		}
	}

	// Records remaining in the index are known locally as linked but were
	// absent from this fetch. Deletion is not propagated in either
	// direction; they are left untouched.
	if len(index) > 0 {
		e.log.Debug().Int("count", len(index)).Msg("linked records absent from fetch, left untouched")
	}

	e.log.Info().
		Int("created", len(outcome.Created)).
		Int("updated", len(outcome.Updated)).
		Int("pushed", len(outcome.Pushed)).
		Int("errors", len(outcome.Errors)).
		Msg("sync pass complete")
	return outcome, nil
}

// fatal reports whether an apply error must abort the remainder of the pass.
func fatal(err error) bool {
	var rle *gh.RateLimitError
	return errors.As(err, &rle) || errors.Is(err, gh.ErrAuthRequired)
}

// applyCreate instantiates a local record from a remote issue not seen
// before.
func (e *Engine) applyCreate(issue gh.Issue, outcome *Outcome) error {
	now := e.nowFn()
	status := task.StatusFromRemote(issue.State, issue.AssigneeLogin(), e.login)

	rec := &task.Record{
		ID:       task.Slugify(issue.Title),
		Status:   status,
		Assignee: issue.AssigneeLogin(),
		Labels:   issue.LabelNames(),
		Created:  issue.CreatedAt,
		Modified: now,
		Content:  task.JoinContent(issue.Title, issue.Body),
		Remote: &task.RemoteLink{
			ID:       issue.Number,
			Repo:     e.repo,
			URL:      issue.HTMLURL,
			SyncedAt: now,
		},
	}
	if status.Terminal() {
		completed := now
		if issue.ClosedAt != nil {
			completed = *issue.ClosedAt
		}
		rec.CompletedAt = &completed
	}

	if err := e.store.Create(rec); err != nil {
		return err
	}

	e.log.Debug().Int("number", issue.Number).Str("id", rec.ID).Msg("created record from remote")
	outcome.Created = append(outcome.Created, rec.ID)
	return nil
}

// applyPull overwrites local fields from the remote issue. The file is
// relocated before the rewritten record is persisted; a relocation failure
// means the record's changes are not committed.
func (e *Engine) applyPull(local *task.Record, issue gh.Issue, outcome *Outcome) error {
	now := e.nowFn()

	// Both sides changed and the remote won: keep the losing local version.
	if local.Modified.After(local.Remote.SyncedAt) {
		if err := e.backupConflict(local); err != nil {
			e.log.Warn().Err(err).Str("id", local.ID).Msg("conflict backup failed")
		}
	}

	updated := *local
	remote := *local.Remote
	updated.Remote = &remote

	updated.Content = task.JoinContent(issue.Title, issue.Body)
	updated.SetStatus(task.StatusFromRemote(issue.State, issue.AssigneeLogin(), e.login), now)
	// A local assignee is never blanked out by an unassigned remote.
	if assignee := issue.AssigneeLogin(); assignee != "" {
		updated.Assignee = assignee
	}
	updated.Labels = issue.LabelNames()
	updated.Modified = now
	updated.Remote.SyncedAt = now

	newPath, err := e.store.Relocate(local.FilePath, updated.Status)
	if err != nil {
		return err
	}
	updated.FilePath = newPath

	if err := e.store.Write(&updated); err != nil {
		return err
	}

	e.log.Debug().Int("number", issue.Number).Str("id", updated.ID).Msg("pulled remote changes")
	outcome.Updated = append(outcome.Updated, updated.ID)
	return nil
}

// applyPush sends local fields to the remote issue. SyncedAt is only bumped
// after the push succeeds, so a failed push is retried on the next pass.
func (e *Engine) applyPush(local *task.Record, outcome *Outcome) error {
	title, body := task.SplitContent(local.Content)
	update := gh.IssueUpdate{
		Title: title,
		Body:  body,
		State: task.RemoteState(local.Status),
	}

	if err := e.client.UpdateIssue(e.repo, local.Remote.ID, update); err != nil {
		return err
	}

	local.Remote.SyncedAt = e.nowFn()
	if err := e.store.Write(local); err != nil {
		return err
	}

	e.log.Debug().Int("number", local.Remote.ID).Str("id", local.ID).Msg("pushed local changes")
	outcome.Pushed = append(outcome.Pushed, local.ID)
	return nil
}
