package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/config"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/importer"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/logging"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/reporter"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/store"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/todo"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/ui"
)

const dateLayout = "2006-01-02"

var (
	flagConfig   string
	flagDataDir  string
	flagJSON     bool
	flagLogLevel string
	flagNoColor  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "todograph",
		Short: "Plan todos with dependencies, critical paths and start dates",
		Long: `Todograph keeps a list of todos linked by "must finish before" dependencies.
Every change is checked for cycles, the critical path is the longest chain of
estimated work, and each todo gets the earliest date it can start.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagNoColor {
				ui.Disable()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default .todograph/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Directory holding todos.json (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(depCmd())
	rootCmd.AddCommand(criticalPathCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(inferDepsCmd())
	rootCmd.AddCommand(resetCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app bundles everything a command needs.
type app struct {
	cfg   *config.Config
	log   *log.Logger
	store *store.Store
	svc   *todo.Service
}

// openApp loads config, builds the logger and opens the store.
func openApp(opts ...todo.Option) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "path", st.Path())

	opts = append([]todo.Option{todo.WithDefaultEstimate(cfg.DefaultEstimateDays)}, opts...)
	return &app{
		cfg:   cfg,
		log:   logger,
		store: st,
		svc:   todo.NewService(st, logger, opts...),
	}, nil
}

// reporter snapshots the store for display.
func (a *app) reporter(ctx context.Context) (*reporter.Reporter, error) {
	todos, err := a.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	deps, err := a.svc.Dependencies(ctx)
	if err != nil {
		return nil, err
	}
	return reporter.New(todos, deps, time.Now()), nil
}

// criticalSet returns the ids on the critical path. A graph that cannot be
// analyzed yields an empty set and a warning.
func (a *app) criticalSet(ctx context.Context) map[int]bool {
	set := make(map[int]bool)
	view, err := a.svc.CriticalPath(ctx)
	if err != nil {
		a.log.Warn("critical path unavailable", "err", err)
		return set
	}
	for _, p := range view.CriticalPath {
		set[p.ID] = true
	}
	return set
}

func initCmd() *cobra.Command {
	var flagForce bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flagConfig
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !flagForce {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if flagDataDir != "" {
				cfg.DataDir = flagDataDir
			}
			if err := cfg.Write(path); err != nil {
				return err
			}

			if !flagJSON {
				ui.PrintLogo(os.Stdout)
			}
			fmt.Printf("%s wrote %s\n", ui.Green("✓"), ui.Bold(path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing config file")
	return cmd
}

func addCmd() *cobra.Command {
	var (
		flagDue  string
		flagDays int
		flagDeps []int
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}

			in := todo.NewTodo{
				Title:         strings.Join(args, " "),
				EstimatedDays: flagDays,
				Dependencies:  flagDeps,
			}
			if flagDue != "" {
				due, err := time.Parse(dateLayout, flagDue)
				if err != nil {
					return fmt.Errorf("parse --due: %w", err)
				}
				in.DueDate = due
			}

			created, batch, err := a.svc.Create(cmd.Context(), in)
			if err != nil {
				return err
			}

			if flagJSON {
				return reporter.WriteJSON(os.Stdout, struct {
					Todo         *todo.Todo        `json:"todo"`
					Dependencies *todo.BatchResult `json:"dependencies,omitempty"`
				}{created, batch})
			}

			fmt.Printf("%s created %s %s\n", ui.Green("✓"), ui.TodoID(created.ID), created.Title)
			if batch != nil {
				reporter.PrintBatch(os.Stdout, "depends on", batch)
			}
			if created.EarliestStart != nil {
				fmt.Printf("  earliest start %s\n", ui.Cyan(created.EarliestStart.Format(dateLayout)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagDue, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&flagDays, "days", 0, "Estimated completion days (default from config)")
	cmd.Flags().IntSliceVar(&flagDeps, "dep", nil, "Id of a todo that must finish first (repeatable)")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List todos by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if flagJSON {
				todos, err := a.svc.List(ctx)
				if err != nil {
					return err
				}
				return reporter.WriteJSON(os.Stdout, todos)
			}

			rpt, err := a.reporter(ctx)
			if err != nil {
				return err
			}
			rpt.PrintList(os.Stdout, a.criticalSet(ctx))
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a todo with its dependencies and dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if flagJSON {
				t, err := a.svc.Get(ctx, id)
				if err != nil {
					return err
				}
				return reporter.WriteJSON(os.Stdout, t)
			}

			rpt, err := a.reporter(ctx)
			if err != nil {
				return err
			}
			return rpt.PrintTodo(os.Stdout, id)
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete todos and every dependency touching them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := a.svc.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Printf("%s deleted %s\n", ui.Green("✓"), ui.TodoID(id))
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "status <id> <pending|inProgress|completed>",
		Short:     "Set a todo's status",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(todo.StatusPending), string(todo.StatusInProgress), string(todo.StatusCompleted)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			status := todo.Status(args[1])
			if err := a.svc.UpdateStatus(cmd.Context(), id, status); err != nil {
				return err
			}
			fmt.Printf("%s %s %s\n", ui.StatusIcon(string(status)), ui.TodoID(id), status)
			return nil
		},
	}
}

func depCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage dependencies",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <todo-id> <parent-id>...",
		Short: "Make a todo wait for one or more parents",
		Long: `Each parent is checked on its own: self references, unknown ids, duplicates
and edges that would close a cycle are rejected, the rest are saved.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepBatch(cmd, args, "depends on", func(a *app, child int, parents []int) (*todo.BatchResult, error) {
				return a.svc.AddDependencies(cmd.Context(), child, parents)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <todo-id> <parent-id>...",
		Short: "Remove dependencies from a todo",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepBatch(cmd, args, "no longer depends on", func(a *app, child int, parents []int) (*todo.BatchResult, error) {
				return a.svc.RemoveDependencies(cmd.Context(), child, parents)
			})
		},
	})

	return cmd
}

func runDepBatch(cmd *cobra.Command, args []string, verb string, fn func(*app, int, []int) (*todo.BatchResult, error)) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	result, err := fn(a, ids[0], ids[1:])
	if err != nil {
		return err
	}
	if flagJSON {
		return reporter.WriteJSON(os.Stdout, result)
	}
	reporter.PrintBatch(os.Stdout, verb, result)
	return nil
}

func criticalPathCmd() *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:     "critical-path",
		Aliases: []string{"cp"},
		Short:   "Show the longest chain of estimated work",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			view, err := a.svc.CriticalPath(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case flagJSON:
				return reporter.WriteJSON(os.Stdout, view)
			case flagFormat == "dot":
				reporter.WriteDOT(os.Stdout, view)
				return nil
			case flagFormat == "text" || flagFormat == "":
				reporter.PrintCriticalPath(os.Stdout, view)
				return nil
			default:
				return fmt.Errorf("unknown format %q (use text or dot)", flagFormat)
			}
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or dot")
	return cmd
}

func scheduleCmd() *cobra.Command {
	var flagNow string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Recompute earliest start dates and show them as waves",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []todo.Option
			if flagNow != "" {
				now, err := time.Parse(dateLayout, flagNow)
				if err != nil {
					return fmt.Errorf("parse --now: %w", err)
				}
				opts = append(opts, todo.WithClock(func() time.Time { return now }))
			}

			a, err := openApp(opts...)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			starts, err := a.svc.RefreshStartDates(ctx)
			if err != nil {
				return err
			}

			if flagJSON {
				return reporter.WriteJSON(os.Stdout, starts)
			}

			rpt, err := a.reporter(ctx)
			if err != nil {
				return err
			}
			rpt.PrintSchedule(os.Stdout, starts, a.criticalSet(ctx))
			return nil
		},
	}

	cmd.Flags().StringVar(&flagNow, "now", "", "Project from this date instead of today (YYYY-MM-DD)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import todos and dependencies from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			snap, err := importer.Parse(data)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			results, err := a.svc.Import(cmd.Context(), snap.Todos, snap.Dependencies)
			if err != nil {
				return err
			}

			if flagJSON {
				return reporter.WriteJSON(os.Stdout, results)
			}

			fmt.Printf("📂 Imported %s todos from %s\n", ui.Bold(len(snap.Todos)), ui.Dim(args[0]))
			for _, r := range results {
				reporter.PrintBatch(os.Stdout, "depends on", r)
			}
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	var flagForce bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every todo and dependency",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flagForce {
				return fmt.Errorf("refusing to delete data without --force")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			if err := a.store.Clean(); err != nil {
				return fmt.Errorf("reset store: %w", err)
			}
			fmt.Printf("%s removed %s\n", ui.Green("✓"), ui.Dim(a.store.Path()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagForce, "force", false, "Confirm deletion")
	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, len(args))
	for i, s := range args {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
