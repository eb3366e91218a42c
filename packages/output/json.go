package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/probe"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	BaseURL     string           `json:"baseUrl"`
	Profiles    []string         `json:"profiles"`
	Summary     JSONSummary      `json:"summary"`
	Scenarios   []JSONScenario   `json:"scenarios"`
	Latency     *JSONLatency     `json:"latency,omitempty"`
	Comparisons []JSONComparison `json:"comparisons,omitempty"`
	Duration    float64          `json:"duration"`
	Time        string           `json:"time"`
}

// JSONSummary represents the run summary
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONScenario represents a single scenario result
type JSONScenario struct {
	ID         string  `json:"id"`
	Group      string  `json:"group"`
	Name       string  `json:"name"`
	Profile    string  `json:"profile"`
	Passed     bool    `json:"passed"`
	Skipped    bool    `json:"skipped,omitempty"`
	SkipReason string  `json:"skipReason,omitempty"`
	Attempts   int     `json:"attempts"`
	Duration   float64 `json:"duration"`
	Error      string  `json:"error,omitempty"`
}

// JSONLatency represents overall latency percentiles in milliseconds
type JSONLatency struct {
	P50  int64 `json:"p50"`
	P95  int64 `json:"p95"`
	P99  int64 `json:"p99"`
	Min  int64 `json:"min"`
	Max  int64 `json:"max"`
	Mean int64 `json:"mean"`
}

// JSONComparison represents per-scenario profile latency means
type JSONComparison struct {
	Scenario string             `json:"scenario"`
	Fastest  string             `json:"fastest"`
	MeansMs  map[string]float64 `json:"meansMs"`
	Slowdown map[string]float64 `json:"slowdown"`
}

// JSONFormatter formats probe results as JSON
type JSONFormatter struct {
	writer io.Writer
	output JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *probe.RunResult) {
	f.output.BaseURL = result.BaseURL
	f.output.Profiles = result.Profiles
	f.output.Summary = JSONSummary{
		Total:   result.Passed + result.Failed + result.Skipped,
		Passed:  result.Passed,
		Failed:  result.Failed,
		Skipped: result.Skipped,
	}

	for _, r := range result.Results {
		sc := JSONScenario{
			ID:         r.Scenario.ID,
			Group:      r.Scenario.Group,
			Name:       r.Scenario.Name,
			Profile:    r.Profile,
			Passed:     r.Passed,
			Skipped:    r.Skipped,
			SkipReason: r.SkipReason,
			Attempts:   len(r.Attempts),
			Duration:   float64(r.Duration().Milliseconds()),
		}
		if err := r.Err(); err != nil {
			sc.Error = err.Error()
		}
		f.output.Scenarios = append(f.output.Scenarios, sc)
	}

	if s := result.Summary; s != nil && s.Total > 0 {
		f.output.Latency = &JSONLatency{
			P50:  s.P50.Milliseconds(),
			P95:  s.P95.Milliseconds(),
			P99:  s.P99.Milliseconds(),
			Min:  s.Min.Milliseconds(),
			Max:  s.Max.Milliseconds(),
			Mean: s.Mean.Milliseconds(),
		}
	}

	for _, c := range result.Comparisons {
		f.output.Comparisons = append(f.output.Comparisons, JSONComparison{
			Scenario: c.ScenarioID,
			Fastest:  c.Fastest,
			MeansMs:  c.MeansMs,
			Slowdown: c.Slowdown,
		})
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual scenario results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	f.output.Duration = float64(totalDuration.Milliseconds())
	f.output.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}
