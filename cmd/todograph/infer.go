package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rishiganesh2002/soma-technical-assessment/internal/claude"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/graph"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/reporter"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/todo"
	"github.com/rishiganesh2002/soma-technical-assessment/internal/ui"
)

func inferDepsCmd() *cobra.Command {
	var (
		flagApply    bool
		flagModel    string
		flagOutput   string
		flagFromFile string
	)

	cmd := &cobra.Command{
		Use:   "infer-deps",
		Short: "Use Claude to infer todo dependencies from titles",
		Long: `Sends open todo titles to Claude and infers dependency edges.
By default runs in dry-run mode. Use --apply to save the dependencies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp()
			if err != nil {
				return err
			}

			todos, err := a.svc.List(ctx)
			if err != nil {
				return err
			}
			deps, err := a.svc.Dependencies(ctx)
			if err != nil {
				return err
			}

			var summaries []claude.TodoSummary
			ids := make(map[int]bool, len(todos))
			for _, t := range todos {
				ids[t.ID] = true
				if t.Status == todo.StatusCompleted {
					continue
				}
				s := claude.TodoSummary{ID: t.ID, Title: t.Title, EstimatedDays: t.EstimatedDays}
				if !t.DueDate.IsZero() {
					s.DueDate = t.DueDate.Format(dateLayout)
				}
				summaries = append(summaries, s)
			}
			if len(summaries) == 0 {
				return fmt.Errorf("no open todos found")
			}

			var result *claude.InferDepsResult
			if flagFromFile != "" {
				data, err := os.ReadFile(flagFromFile)
				if err != nil {
					return fmt.Errorf("read from-file: %w", err)
				}
				result, err = claude.ParseResult(string(data))
				if err != nil {
					return fmt.Errorf("parse from-file: %w", err)
				}
				fmt.Printf("📂 Loaded %s edges from %s\n", ui.Bold(len(result.Edges)), ui.Dim(flagFromFile))
			} else {
				model := flagModel
				if model == "" {
					model = a.cfg.Model
				}
				fmt.Printf("🔍 Sending %s todos to Claude for dependency inference...\n", ui.Bold(len(summaries)))

				client, err := claude.NewClient("", model)
				if err != nil {
					return err
				}
				result, err = client.InferDeps(ctx, summaries)
				if err != nil {
					return fmt.Errorf("infer deps: %w", err)
				}
			}

			accepted := filterEdges(result.Edges, ids, todos, deps)

			if flagJSON {
				out := claude.InferDepsResult{Edges: accepted, Summary: result.Summary}
				if flagOutput != "" {
					data, err := json.MarshalIndent(out, "", "  ")
					if err != nil {
						return err
					}
					if err := os.WriteFile(flagOutput, data, 0644); err != nil {
						return err
					}
					fmt.Printf("Wrote %d edges to %s\n", len(accepted), flagOutput)
					return nil
				}
				if !flagApply {
					return reporter.WriteJSON(os.Stdout, out)
				}
			}

			if !flagJSON {
				fmt.Printf("\n🔗 Inferred %s dependencies (%d from Claude, %d after validation):\n\n",
					ui.Bold(len(accepted)), len(result.Edges), len(accepted))
				for _, e := range accepted {
					fmt.Printf("  %s %s waits for %s  %s\n", ui.Cyan("→"), ui.TodoID(e.ChildID), ui.TodoID(e.ParentID), ui.Dim(e.Reason))
				}
				if result.Summary != "" {
					fmt.Printf("\n💡 %s %s\n", ui.BoldWhite("Summary:"), result.Summary)
				}
			}

			if !flagApply {
				fmt.Printf("\n🎯 %s\n", ui.Yellow("Dry run. Use --apply to save these dependencies."))
				return nil
			}

			children, parents := claude.GroupByChild(accepted)
			var batches []*todo.BatchResult
			applied := 0
			for _, child := range children {
				batch, err := a.svc.AddDependencies(ctx, child, parents[child])
				if err != nil {
					return err
				}
				applied += len(batch.Successful)
				batches = append(batches, batch)
			}

			if flagJSON {
				return reporter.WriteJSON(os.Stdout, batches)
			}
			fmt.Printf("\n📝 Applying %s dependencies...\n", ui.Bold(len(accepted)))
			for _, b := range batches {
				reporter.PrintBatch(os.Stdout, "depends on", b)
			}
			fmt.Printf("\n🏁 Applied %s/%d dependencies.\n", ui.BoldGreen(applied), len(accepted))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagApply, "apply", false, "Save inferred deps (default: dry-run)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model to use (default from config, else Sonnet)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Save JSON output to file (use with --json)")
	cmd.Flags().StringVar(&flagFromFile, "from-file", "", "Load inferred deps from a JSON file instead of calling Claude")

	return cmd
}

// filterEdges drops edges with unknown ids, self references and edges that
// would close a cycle, adding the survivors greedily in order on top of the
// existing dependencies.
func filterEdges(edges []claude.DepEdge, ids map[int]bool, todos []todo.Todo, deps []todo.Dependency) []claude.DepEdge {
	vertices, current := todo.Snapshot(todos, deps)

	var accepted []claude.DepEdge
	for _, e := range edges {
		switch {
		case !ids[e.ChildID]:
			fmt.Fprintf(os.Stderr, "  %s unknown child_id %d\n", ui.Yellow("SKIP:"), e.ChildID)
			continue
		case !ids[e.ParentID]:
			fmt.Fprintf(os.Stderr, "  %s unknown parent_id %d\n", ui.Yellow("SKIP:"), e.ParentID)
			continue
		case e.ChildID == e.ParentID:
			fmt.Fprintf(os.Stderr, "  %s self-dep %d\n", ui.Yellow("SKIP:"), e.ChildID)
			continue
		}

		candidate := append(current[:len(current):len(current)], graph.Edge{
			From: graph.TaskID(e.ParentID),
			To:   graph.TaskID(e.ChildID),
		})
		if err := graph.ValidateAcyclic(vertices, candidate); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", ui.Yellow("SKIP:"), err)
			continue
		}
		current = candidate
		accepted = append(accepted, e)
	}
	return accepted
}
