// Package main provides the CLI entrypoint for kanban-md.
package main

import (
	"errors"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/LachyFS/kanban-md/internal/auth"
	"github.com/LachyFS/kanban-md/internal/board"
	"github.com/LachyFS/kanban-md/internal/config"
	"github.com/LachyFS/kanban-md/internal/gh"
	"github.com/LachyFS/kanban-md/internal/gitrepo"
	"github.com/LachyFS/kanban-md/internal/logging"
	"github.com/LachyFS/kanban-md/internal/output"
	boardsync "github.com/LachyFS/kanban-md/internal/sync"
)

var (
	flagRoot     string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kanban-md",
	Short: "Markdown kanban board synchronized with GitHub issues",
	Long: `kanban-md manages a directory of markdown task files, one file per
task and one subdirectory per status, and keeps them reconciled
with the issues of a GitHub repository.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := flagLogLevel
		if level == "" {
			if cfg, err := config.Load(flagRoot); err == nil {
				level = cfg.LogLevel
			}
		}
		return logging.Setup(level)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the board layout and configuration",
	Long: `Create one directory per status under the board root and write the
board configuration. When no repository is given, the local git
remote is inspected for one.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the board against the remote repository",
	Long: `Run one synchronization pass: fetch the repository's issues, merge
divergent edits by last-write timestamps, and relocate task files
whose status changed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var flagInitRepo string

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagRoot, "root", "r", ".", "board root directory")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	initCmd.Flags().StringVar(&flagInitRepo, "repo", "", "remote repository in owner/repo format")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(showCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ui := output.New()

	store := board.NewStore(flagRoot)
	if err := store.EnsureLayout(); err != nil {
		return err
	}
	ui.Success("board layout created under %s", flagRoot)

	cfg, err := config.Load(flagRoot)
	if err != nil {
		return err
	}

	if flagInitRepo != "" {
		cfg.Repo = flagInitRepo
	} else if cfg.Repo == "" {
		if repo, err := gitrepo.Detect(flagRoot); err == nil {
			cfg.Repo = repo
			ui.Info("detected repository %s", repo)
		} else {
			ui.Warning("no repository detected; set one with --repo or in %s", config.FileName)
		}
	}

	if err := cfg.Save(flagRoot); err != nil {
		return err
	}
	ui.Success("configuration written to %s", config.FileName)
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ui := output.New()

	cfg, err := config.Load(flagRoot)
	if err != nil {
		return err
	}

	store := board.NewStore(flagRoot)
	if err := store.EnsureLayout(); err != nil {
		return err
	}

	// The login feeds the assigned-to-me mapping; without one, open
	// issues simply never map to "todo".
	login := ""
	if cred, err := auth.Resolve(); err == nil {
		login = cred.Login
	}

	client := gh.New(tokenFunc)
	detect := func() (string, error) { return gitrepo.Detect(flagRoot) }
	engine := boardsync.NewEngine(store, client, cfg.Repo, login, detect)

	outcome, err := engine.Sync()
	if outcome != nil {
		renderOutcome(ui, outcome)
	}
	if err != nil {
		var rle *gh.RateLimitError
		if errors.As(err, &rle) {
			ui.Error("rate limit exceeded, resets %s", humanize.Time(rle.Reset))
			return err
		}
		return err
	}

	// Persist a repository filled in by auto-detection.
	if cfg.Repo == "" && engine.Repo() != "" {
		cfg.Repo = engine.Repo()
		if err := cfg.Save(flagRoot); err != nil {
			ui.Warning("failed to save detected repository: %v", err)
		}
	}

	ui.Success("synced with %s: %d created, %d updated, %d pushed",
		engine.Repo(), len(outcome.Created), len(outcome.Updated), len(outcome.Pushed))
	return nil
}

func renderOutcome(ui *output.UI, outcome *boardsync.Outcome) {
	if outcome.Applied() > 0 {
		table := ui.Table([]string{"ACTION", "RECORD"})
		for _, id := range outcome.Created {
			table.Append([]string{"created", id})
		}
		for _, id := range outcome.Updated {
			table.Append([]string{"updated", id})
		}
		for _, id := range outcome.Pushed {
			table.Append([]string{"pushed", id})
		}
		table.Render()
	}

	for _, re := range outcome.Errors {
		if re.ID != "" {
			ui.Error("record %s (issue #%d): %v", re.ID, re.Number, re.Err)
		} else {
			ui.Error("issue #%d: %v", re.Number, re.Err)
		}
	}
}

// tokenFunc obtains a fresh credential for every API call.
func tokenFunc() (string, error) {
	cred, err := auth.Resolve()
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}
