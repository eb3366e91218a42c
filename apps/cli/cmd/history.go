package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/binprobe/packages/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyDBFlag    string
	historyLimitFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved probe runs",
	Long: `Inspect probe runs saved with 'binprobe run --save'.

Examples:
  binprobe history list
  binprobe history show a1b2c3d4
  binprobe history show latest
  binprobe history compare a1b2c3d4 e5f6a7b8`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	Args:  cobra.NoArgs,
	RunE:  historyListCommand,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id|latest>",
	Short: "Show the scenario results of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  historyShowCommand,
}

var historyCompareCmd = &cobra.Command{
	Use:   "compare <run-id> <run-id>",
	Short: "Compare two runs scenario by scenario",
	Args:  cobra.ExactArgs(2),
	RunE:  historyCompareCommand,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDBFlag, "history-path", "", "Path to the history database")
	historyListCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum runs to list")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCompareCmd)
}

func openHistory() (*history.Store, error) {
	path := historyDBFlag
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return history.Open(path)
}

func historyListCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(context.Background(), historyLimitFlag)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded. Use 'binprobe run --save' to record one.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-20s %-30s %-22s %s\n",
		"ID", "WHEN", "BASE URL", "PROFILES", "RESULT")
	for _, r := range runs {
		result := fmt.Sprintf("%d passed, %d failed", r.Passed, r.Failed)
		if r.Skipped > 0 {
			result += fmt.Sprintf(", %d skipped", r.Skipped)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-20s %-30s %-22s %s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(r.BaseURL, 30),
			truncate(strings.Join(r.Profiles, ","), 22),
			result)
	}

	return nil
}

func historyShowCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	run, err := store.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	results, err := store.Results(ctx, run.ID)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s  %s  %s\n\n",
		shortID(run.ID), run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.BaseURL)

	for _, r := range results {
		symbol := green("✓")
		switch {
		case r.Skipped:
			symbol = yellow("-")
		case !r.Passed:
			symbol = red("✗")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %-28s %-12s %6dms\n",
			symbol, r.ScenarioID, r.Profile, r.Duration.Milliseconds())
		if r.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", r.Error)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d passed, %d failed, %d skipped in %dms\n",
		run.Passed, run.Failed, run.Skipped, run.Duration.Milliseconds())

	return nil
}

func historyCompareCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	before, err := store.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	after, err := store.Resolve(ctx, args[1])
	if err != nil {
		return err
	}

	deltas, err := store.Compare(ctx, before.ID, after.ID)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(cmd.OutOrStdout(), "Comparing %s -> %s\n\n", shortID(before.ID), shortID(after.ID))

	var regressions, fixes int
	for _, d := range deltas {
		switch {
		case d.Before == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "  + %-28s %-12s %s\n",
				d.ScenarioID, d.Profile, dim("new scenario"))
		case d.After == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "  - %-28s %-12s %s\n",
				d.ScenarioID, d.Profile, dim("removed"))
		case d.Regressed:
			regressions++
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %-28s %-12s %s\n",
				red("✗"), d.ScenarioID, d.Profile, red("regressed"))
		case d.Fixed:
			fixes++
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %-28s %-12s %s\n",
				green("✓"), d.ScenarioID, d.Profile, green("fixed"))
		default:
			sign := "+"
			if d.DurationMs < 0 {
				sign = ""
			}
			fmt.Fprintf(cmd.OutOrStdout(), "    %-28s %-12s %s%dms\n",
				d.ScenarioID, d.Profile, sign, d.DurationMs)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d regressions, %d fixes across %d scenarios\n",
		regressions, fixes, len(deltas))

	if regressions > 0 {
		return fmt.Errorf("%d scenario(s) regressed", regressions)
	}

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
