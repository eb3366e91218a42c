package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/abdul-hamid-achik/binprobe/packages/probe"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "\n%s\n", bold("binprobe "+version))
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatResult(result *probe.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Probing: "+result.BaseURL))

	for _, profile := range result.Profiles {
		if len(result.Profiles) > 1 {
			fmt.Fprintf(f.writer, "\n%s\n", cyan("profile: "+profile))
		} else {
			fmt.Fprintln(f.writer)
		}

		lastGroup := ""
		for _, r := range result.Results {
			if r.Profile != profile {
				continue
			}

			if r.Scenario.Group != lastGroup {
				lastGroup = r.Scenario.Group
				fmt.Fprintf(f.writer, "  %s\n", bold(catalog.GroupTitle(lastGroup)))
			}

			if r.Skipped {
				fmt.Fprintf(f.writer, "    %s %s", yellow("-"), r.Scenario.Name)
				if r.SkipReason != "" {
					fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
				}
				fmt.Fprintln(f.writer)
				continue
			}

			symbol := green("✓")
			if !r.Passed {
				symbol = red("✗")
			}

			fmt.Fprintf(f.writer, "    %s %s %s\n", symbol, r.Scenario.Name,
				cyan(fmt.Sprintf("(%dms)", r.Duration().Milliseconds())))

			if err := r.Err(); err != nil {
				fmt.Fprintf(f.writer, "      %s %v\n", red("→"), err)
			}
		}
	}

	if len(result.Comparisons) > 0 {
		f.formatComparisons(result)
	}

	fmt.Fprintln(f.writer)
	fmt.Fprintf(f.writer, "Scenarios: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())

	if f.verbose && result.Summary != nil && result.Summary.Total > 0 {
		s := result.Summary
		fmt.Fprintf(f.writer, "Latency: p50: %dms | p95: %dms | p99: %dms | max: %dms\n",
			s.P50.Milliseconds(), s.P95.Milliseconds(), s.P99.Milliseconds(), s.Max.Milliseconds())
	}
}

// formatComparisons prints a per-scenario table of mean latency per profile.
func (f *ConsoleFormatter) formatComparisons(result *probe.RunResult) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("PROFILE COMPARISON (mean ms)"))

	nameWidth := len("scenario")
	for _, c := range result.Comparisons {
		if len(c.ScenarioID) > nameWidth {
			nameWidth = len(c.ScenarioID)
		}
	}

	profiles := append([]string(nil), result.Profiles...)
	sort.Strings(profiles)

	fmt.Fprintf(f.writer, "  %-*s", nameWidth, "scenario")
	for _, p := range profiles {
		fmt.Fprintf(f.writer, "  %10s", p)
	}
	fmt.Fprintln(f.writer)
	fmt.Fprintf(f.writer, "  %s\n", strings.Repeat("─", nameWidth+12*len(profiles)))

	for _, c := range result.Comparisons {
		fmt.Fprintf(f.writer, "  %-*s", nameWidth, c.ScenarioID)
		for _, p := range profiles {
			mean, ok := c.MeansMs[p]
			if !ok {
				fmt.Fprintf(f.writer, "  %10s", dim("-"))
				continue
			}
			cell := fmt.Sprintf("%.1f", mean)
			if p == c.Fastest {
				fmt.Fprintf(f.writer, "  %10s", green(cell))
			} else {
				fmt.Fprintf(f.writer, "  %10s", cell)
			}
		}
		fmt.Fprintln(f.writer)
	}
}
