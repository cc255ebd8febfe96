package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/LachyFS/kanban-md/internal/board"
	"github.com/LachyFS/kanban-md/internal/cache"
	"github.com/LachyFS/kanban-md/internal/config"
	"github.com/LachyFS/kanban-md/internal/gh"
	"github.com/LachyFS/kanban-md/internal/output"
	"github.com/LachyFS/kanban-md/internal/task"
)

const cacheFileName = ".kanban-cache.db"

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every task on the board",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var (
	flagNewBody     string
	flagNewStatus   string
	flagNewPriority string
	flagNewDue      string
	flagNewLabels   []string
)

var newCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create a local task",
	Long: `Create a task on the board. The task id is derived from the title and
never changes. New tasks have no remote link until a sync pushes or
pulls against the tracker.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNew,
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a task to another status",
	Long: `Change a task's status. The backing file is relocated into the new
status directory in the same operation, so location and status never
drift apart.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task, including its remote comment thread",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	newCmd.Flags().StringVar(&flagNewBody, "body", "", "task body text")
	newCmd.Flags().StringVar(&flagNewStatus, "status", "", "initial status (defaults to the configured default)")
	newCmd.Flags().StringVar(&flagNewPriority, "priority", "", "task priority")
	newCmd.Flags().StringVar(&flagNewDue, "due", "", "due date (YYYY-MM-DD)")
	newCmd.Flags().StringSliceVar(&flagNewLabels, "label", nil, "task label (repeatable)")
}

// findRecord locates a task by id anywhere on the board.
func findRecord(store *board.Store, id string) (*task.Record, error) {
	records, err := store.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no task with id %q", id)
}

func runList(cmd *cobra.Command, args []string) error {
	ui := output.New()

	store := board.NewStore(flagRoot)
	records, err := store.LoadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		ui.Info("board is empty")
		return nil
	}

	table := ui.Table([]string{"ID", "STATUS", "TITLE", "ASSIGNEE", "DUE", "UPDATED", "REMOTE"})
	for _, status := range task.Statuses() {
		for _, r := range records {
			if r.Status != status {
				continue
			}
			remote := ""
			if r.Remote != nil {
				remote = fmt.Sprintf("#%d", r.Remote.ID)
			}
			table.Append([]string{
				r.ID,
				output.StatusColor(r.Status),
				r.Title(),
				r.Assignee,
				r.DueDate,
				humanize.Time(r.Modified),
				remote,
			})
		}
	}
	table.Render()
	return nil
}

func runNew(cmd *cobra.Command, args []string) error {
	ui := output.New()

	cfg, err := config.Load(flagRoot)
	if err != nil {
		return err
	}

	statusName := flagNewStatus
	if statusName == "" {
		statusName = cfg.DefaultStatus
	}
	status, err := task.ParseStatus(statusName)
	if err != nil {
		return err
	}

	store := board.NewStore(flagRoot)
	if err := store.EnsureLayout(); err != nil {
		return err
	}

	title := strings.Join(args, " ")
	rec := task.New(title, flagNewBody, status, time.Now())
	rec.Priority = flagNewPriority
	rec.DueDate = flagNewDue
	rec.Labels = flagNewLabels

	if err := store.Create(rec); err != nil {
		return err
	}

	rel, _ := filepath.Rel(flagRoot, rec.FilePath)
	ui.Success("created %s (%s)", rec.ID, rel)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	ui := output.New()

	status, err := task.ParseStatus(args[1])
	if err != nil {
		return err
	}

	store := board.NewStore(flagRoot)
	rec, err := findRecord(store, args[0])
	if err != nil {
		return err
	}
	if rec.Status == status {
		ui.Info("%s is already in %s", rec.ID, status)
		return nil
	}

	// Relocate first; the status field is only committed once the file
	// sits in its new directory.
	newPath, err := store.Relocate(rec.FilePath, status)
	if err != nil {
		return err
	}
	rec.FilePath = newPath

	now := time.Now()
	rec.SetStatus(status, now)
	rec.Touch(now)
	if err := store.Write(rec); err != nil {
		return err
	}

	ui.Success("moved %s to %s", rec.ID, output.StatusColor(status))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ui := output.New()

	store := board.NewStore(flagRoot)
	rec, err := findRecord(store, args[0])
	if err != nil {
		return err
	}

	ui.Info("%s  [%s]", rec.ID, output.StatusColor(rec.Status))
	if rec.Assignee != "" {
		ui.Info("assignee: %s", rec.Assignee)
	}
	if rec.DueDate != "" {
		ui.Info("due: %s", rec.DueDate)
	}
	if len(rec.Labels) > 0 {
		ui.Info("labels: %s", strings.Join(rec.Labels, ", "))
	}
	if rec.CompletedAt != nil {
		ui.Info("completed %s", humanize.Time(*rec.CompletedAt))
	}
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, rec.Content)

	if rec.Remote == nil {
		return nil
	}

	thread, err := fetchThread(rec.Remote.Repo, rec.Remote.ID)
	if err != nil {
		ui.Warning("could not fetch remote thread: %v", err)
		return nil
	}

	fmt.Fprintln(ui.Out)
	ui.Info("%s #%d (%s), last synced %s",
		rec.Remote.Repo, rec.Remote.ID, thread.Issue.State, humanize.Time(rec.Remote.SyncedAt))
	if thread.Issue.Reactions.TotalCount > 0 {
		ui.Info("%d reactions", thread.Issue.Reactions.TotalCount)
	}
	for _, c := range thread.Comments {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "%s %s\n", c.User.Login, output.Faint(humanize.Time(c.CreatedAt)))
		fmt.Fprintln(ui.Out, c.Body)
	}
	return nil
}

// fetchThread returns the issue's comment thread, going through the local
// ETag cache: unchanged issues are served from SQLite without refetching
// the thread.
func fetchThread(repo string, number int) (*gh.Thread, error) {
	db, err := cache.Open(filepath.Join(flagRoot, cacheFileName))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	etag := ""
	entry, err := db.Get(repo, number)
	if err == nil && entry != nil {
		etag = entry.ETag
	}

	client := gh.New(tokenFunc)
	thread, newEtag, err := client.GetThread(repo, number, etag)
	if err != nil {
		// Fall back to the cached thread when offline.
		if entry != nil {
			return &entry.Thread, nil
		}
		return nil, err
	}

	if thread == nil {
		// 304 Not Modified.
		return &entry.Thread, nil
	}

	if err := db.Put(repo, number, newEtag, thread); err != nil {
		return thread, nil
	}
	return thread, nil
}
