package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/fatih/color"
)

// Reporter handles output for benchmark runs.
type Reporter struct {
	writer     io.Writer
	noColor    bool
	noProgress bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
}

// ReporterOption configures the reporter.
type ReporterOption func(*Reporter)

// WithWriter sets the output writer.
func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithNoColor disables colored output.
func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

// WithNoProgress disables the real-time progress display.
func WithNoProgress(noProgress bool) ReporterOption {
	return func(r *Reporter) {
		r.noProgress = noProgress
	}
}

// NewReporter creates a new reporter.
func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}

	for _, opt := range opts {
		opt(r)
	}

	color.NoColor = r.noColor
	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.yellow = color.New(color.FgYellow)
	r.cyan = color.New(color.FgCyan)
	r.bold = color.New(color.Bold)

	return r
}

// Header prints the benchmark header.
func (r *Reporter) Header(scenario *catalog.Scenario, config *Config) {
	fmt.Fprintln(r.writer)
	r.cyan.Fprintf(r.writer, "Benchmarking: %s\n", scenario.ID)

	var details []string
	if config.Workers > 0 {
		details = append(details, fmt.Sprintf("Workers: %d", config.Workers))
		if config.ThinkTime > 0 {
			details = append(details, fmt.Sprintf("Think: %s", config.ThinkTime))
		}
	} else {
		details = append(details,
			fmt.Sprintf("Target: %.0f req/s", config.Rate),
			fmt.Sprintf("Max in-flight: %d", config.MaxInFlight))
	}
	details = append(details, fmt.Sprintf("Duration: %s", config.Duration))
	if config.Warmup > 0 {
		details = append(details, fmt.Sprintf("Warmup: %s", config.Warmup))
	}
	fmt.Fprintf(r.writer, "%s\n", strings.Join(details, " | "))
	fmt.Fprintln(r.writer)
}

// Progress prints real-time progress.
func (r *Reporter) Progress(stats CurrentStats, duration time.Duration) {
	if r.noProgress {
		return
	}

	fmt.Fprint(r.writer, "\r\033[K")

	progress := float64(stats.Elapsed) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	barWidth := 30
	filled := int(progress * float64(barWidth))
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	fmt.Fprintf(r.writer, "Progress %s %s / %s\n", bar, formatDuration(stats.Elapsed), formatDuration(duration))

	fmt.Fprintf(r.writer, "Requests: ")
	r.bold.Fprintf(r.writer, "%d", stats.Total)
	fmt.Fprintf(r.writer, " total | ")
	if stats.Errors > 0 {
		r.red.Fprintf(r.writer, "%d", stats.Errors)
	} else {
		fmt.Fprintf(r.writer, "%d", stats.Errors)
	}
	fmt.Fprintf(r.writer, " errors | ")
	r.cyan.Fprintf(r.writer, "%.1f", stats.RPS)
	fmt.Fprintf(r.writer, " req/s | p50: %s | p95: %s\n", formatLatency(stats.P50), formatLatency(stats.P95))

	// Move cursor up for next update
	fmt.Fprint(r.writer, "\033[2A")
}

// ClearProgress clears the progress display.
func (r *Reporter) ClearProgress() {
	if r.noProgress {
		return
	}
	fmt.Fprint(r.writer, "\033[2B\r\033[K\033[A\r\033[K\033[A\r\033[K")
}

// Summary prints the final summary.
func (r *Reporter) Summary(summary *Summary, thresholdResults []ThresholdResult) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "BENCHMARK SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:   %s\n", formatDuration(summary.Duration))
	fmt.Fprintf(r.writer, "Total:      ")
	r.bold.Fprintf(r.writer, "%d", summary.TotalRequests)
	fmt.Fprintf(r.writer, " requests (%.1f req/s)\n", summary.RPS)

	fmt.Fprintf(r.writer, "Success:    ")
	r.green.Fprintf(r.writer, "%d", summary.SuccessCount)
	fmt.Fprintf(r.writer, " (%.1f%%)\n", summary.SuccessRate*100)

	fmt.Fprintf(r.writer, "Failed:     ")
	if summary.ErrorCount > 0 {
		r.red.Fprintf(r.writer, "%d", summary.ErrorCount)
	} else {
		fmt.Fprintf(r.writer, "%d", summary.ErrorCount)
	}
	fmt.Fprintf(r.writer, " (%.1f%%)\n", summary.ErrorRate*100)

	if summary.TimeoutCount > 0 {
		fmt.Fprintf(r.writer, "Timeouts:   ")
		r.yellow.Fprintf(r.writer, "%d\n", summary.TimeoutCount)
	}

	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "LATENCY")
	fmt.Fprintf(r.writer, "  p50: %-7s | p95: %-7s | p99: %-7s | max: %s\n",
		formatLatency(summary.P50),
		formatLatency(summary.P95),
		formatLatency(summary.P99),
		formatLatency(summary.Max))
	fmt.Fprintf(r.writer, "  min: %-7s | mean: %-6s | stddev: %s\n",
		formatLatency(summary.Min),
		formatLatency(summary.Mean),
		formatLatency(summary.StdDev))

	if len(thresholdResults) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "THRESHOLDS")
		allPassed := true
		for _, tr := range thresholdResults {
			if tr.Passed {
				r.green.Fprintf(r.writer, "  ✓ ")
			} else {
				r.red.Fprintf(r.writer, "  ✗ ")
				allPassed = false
			}
			fmt.Fprintf(r.writer, "%s %s    (actual: %s)\n", tr.Name, tr.Expected, tr.Actual)
		}

		fmt.Fprintln(r.writer)
		if allPassed {
			r.green.Fprintln(r.writer, "All thresholds passed!")
		} else {
			r.red.Fprintln(r.writer, "Some thresholds failed!")
		}
	}

	fmt.Fprintln(r.writer)
}

// JSONSummary outputs the summary as JSON.
func (r *Reporter) JSONSummary(scenario string, summary *Summary, thresholdResults []ThresholdResult) error {
	output := map[string]interface{}{
		"scenario": scenario,
		"duration": summary.Duration.String(),
		"requests": map[string]interface{}{
			"total":    summary.TotalRequests,
			"success":  summary.SuccessCount,
			"failed":   summary.ErrorCount,
			"timeouts": summary.TimeoutCount,
		},
		"rates": map[string]interface{}{
			"rps":         summary.RPS,
			"successRate": summary.SuccessRate,
			"errorRate":   summary.ErrorRate,
		},
		"latency": map[string]interface{}{
			"p50":    summary.P50.Milliseconds(),
			"p95":    summary.P95.Milliseconds(),
			"p99":    summary.P99.Milliseconds(),
			"min":    summary.Min.Milliseconds(),
			"max":    summary.Max.Milliseconds(),
			"mean":   summary.Mean.Milliseconds(),
			"stddev": summary.StdDev.Milliseconds(),
		},
	}

	if len(thresholdResults) > 0 {
		thresholds := make([]map[string]interface{}, len(thresholdResults))
		for i, tr := range thresholdResults {
			thresholds[i] = map[string]interface{}{
				"name":     tr.Name,
				"passed":   tr.Passed,
				"expected": tr.Expected,
				"actual":   tr.Actual,
			}
		}
		output["thresholds"] = thresholds
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// Error prints an error message.
func (r *Reporter) Error(format string, args ...interface{}) {
	r.red.Fprintf(r.writer, "Error: "+format+"\n", args...)
}

// Info prints an info message.
func (r *Reporter) Info(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format+"\n", args...)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm %02ds", minutes, seconds)
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dμs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
