package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/spf13/cobra"
)

var (
	listFilterFlag   string
	listProfilesFlag bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios in the built-in catalog",
	Long: `List every scenario in the built-in catalog, grouped by category.

Examples:
  binprobe list
  binprobe list --filter auth/*
  binprobe list --profiles`,
	Args: cobra.NoArgs,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVarP(&listFilterFlag, "filter", "f", "", "List only scenarios matching pattern")
	listCmd.Flags().BoolVar(&listProfilesFlag, "profiles", false, "List transport profiles instead of scenarios")
}

func listCommand(cmd *cobra.Command, args []string) error {
	if listProfilesFlag {
		for _, p := range httpx.Profiles() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", p.Name, p.Description)
		}
		return nil
	}

	scenarios := catalog.Filter(catalog.Builtin(), listFilterFlag)
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios match filter %q", listFilterFlag)
	}

	lastGroup := ""
	for _, s := range scenarios {
		if s.Group != lastGroup {
			lastGroup = s.Group
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", catalog.GroupTitle(lastGroup))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s", s.ID)
		if s.Slow {
			fmt.Fprint(cmd.OutOrStdout(), "  (slow)")
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout())

	return nil
}
