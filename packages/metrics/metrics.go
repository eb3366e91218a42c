// Package metrics aggregates per-scenario latency and outcome data for
// probe runs.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/montanaflynn/stats"
)

const (
	histMin = 1          // 1us
	histMax = 60_000_000 // 60s in us
	histSig = 3
)

// Outcome classifies how a scenario call ended.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeCheckFail
	OutcomeError
	OutcomeTimeout
)

// Recorder collects latency and outcome data, keyed by transport profile and
// scenario ID. Safe for concurrent use.
type Recorder struct {
	mu        sync.RWMutex
	overall   *hdrhistogram.Histogram
	series    map[seriesKey]*series
	startTime time.Time
	endTime   time.Time

	total     int64
	passes    int64
	checkFail int64
	errors    int64
	timeouts  int64
}

type seriesKey struct {
	profile  string
	scenario string
}

type series struct {
	hist    *hdrhistogram.Histogram
	samples []float64 // milliseconds, one per repeat
	passes  int64
	fails   int64
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		// 1us to 60s range, 3 significant digits
		overall: hdrhistogram.New(histMin, histMax, histSig),
		series:  make(map[seriesKey]*series),
	}
}

// Start marks the beginning of the run.
func (r *Recorder) Start() {
	r.mu.Lock()
	r.startTime = time.Now()
	r.mu.Unlock()
}

// Stop marks the end of the run.
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.endTime = time.Now()
	r.mu.Unlock()
}

// Record adds one scenario call result.
func (r *Recorder) Record(profile, scenarioID string, duration time.Duration, outcome Outcome) {
	latencyUs := duration.Microseconds()
	if latencyUs < histMin {
		latencyUs = histMin
	}
	if latencyUs > histMax {
		latencyUs = histMax
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	switch outcome {
	case OutcomePass:
		r.passes++
	case OutcomeCheckFail:
		r.checkFail++
	case OutcomeTimeout:
		r.timeouts++
	default:
		r.errors++
	}

	_ = r.overall.RecordValue(latencyUs)

	key := seriesKey{profile: profile, scenario: scenarioID}
	s, ok := r.series[key]
	if !ok {
		s = &series{hist: hdrhistogram.New(histMin, histMax, histSig)}
		r.series[key] = s
	}
	_ = s.hist.RecordValue(latencyUs)
	s.samples = append(s.samples, float64(duration.Microseconds())/1000.0)
	if outcome == OutcomePass {
		s.passes++
	} else {
		s.fails++
	}
}

// SampleSummary describes the repeat samples of one profile+scenario pair.
// For small repeat counts the order statistics come from the raw samples
// rather than the histogram, which would over-quantize them.
type SampleSummary struct {
	Profile    string
	ScenarioID string
	Count      int64
	Passes     int64
	Fails      int64
	MinMs      float64
	MaxMs      float64
	MeanMs     float64
	MedianMs   float64
	P90Ms      float64
}

// Summary is the aggregate view of a finished run.
type Summary struct {
	Duration  time.Duration
	Total     int64
	Passes    int64
	CheckFail int64
	Errors    int64
	Timeouts  int64

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration

	Series []SampleSummary
}

// Passed reports whether every recorded call passed.
func (s *Summary) Passed() bool {
	return s.Total > 0 && s.Passes == s.Total
}

// Summary snapshots the recorder into an aggregate view.
func (r *Recorder) Summary() *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	duration := r.endTime.Sub(r.startTime)
	if r.endTime.IsZero() && !r.startTime.IsZero() {
		duration = time.Since(r.startTime)
	}

	summary := &Summary{
		Duration:  duration,
		Total:     r.total,
		Passes:    r.passes,
		CheckFail: r.checkFail,
		Errors:    r.errors,
		Timeouts:  r.timeouts,
		P50:       time.Duration(r.overall.ValueAtQuantile(50)) * time.Microsecond,
		P95:       time.Duration(r.overall.ValueAtQuantile(95)) * time.Microsecond,
		P99:       time.Duration(r.overall.ValueAtQuantile(99)) * time.Microsecond,
		Min:       time.Duration(r.overall.Min()) * time.Microsecond,
		Max:       time.Duration(r.overall.Max()) * time.Microsecond,
		Mean:      time.Duration(r.overall.Mean()) * time.Microsecond,
	}

	for key, s := range r.series {
		data := stats.Float64Data(s.samples)
		min, _ := data.Min()
		max, _ := data.Max()
		mean, _ := data.Mean()
		median, _ := data.Median()
		p90, _ := data.Percentile(90)

		summary.Series = append(summary.Series, SampleSummary{
			Profile:    key.profile,
			ScenarioID: key.scenario,
			Count:      s.passes + s.fails,
			Passes:     s.passes,
			Fails:      s.fails,
			MinMs:      min,
			MaxMs:      max,
			MeanMs:     mean,
			MedianMs:   median,
			P90Ms:      p90,
		})
	}

	sort.Slice(summary.Series, func(i, j int) bool {
		a, b := summary.Series[i], summary.Series[j]
		if a.ScenarioID != b.ScenarioID {
			return a.ScenarioID < b.ScenarioID
		}
		return a.Profile < b.Profile
	})

	return summary
}

// ProfileComparison shows how profiles fared on one scenario.
type ProfileComparison struct {
	ScenarioID string
	Fastest    string
	MeansMs    map[string]float64
	// Slowdown maps profile name to its mean latency relative to the
	// fastest profile (1.0 for the fastest itself).
	Slowdown map[string]float64
}

// Compare builds per-scenario profile comparisons from a summary. Scenarios
// measured under a single profile are skipped.
func Compare(summary *Summary) []ProfileComparison {
	byScenario := make(map[string]map[string]float64)
	for _, s := range summary.Series {
		if byScenario[s.ScenarioID] == nil {
			byScenario[s.ScenarioID] = make(map[string]float64)
		}
		byScenario[s.ScenarioID][s.Profile] = s.MeanMs
	}

	var out []ProfileComparison
	for scenarioID, means := range byScenario {
		if len(means) < 2 {
			continue
		}

		fastest := ""
		best := 0.0
		for profile, mean := range means {
			if fastest == "" || mean < best {
				fastest = profile
				best = mean
			}
		}

		slowdown := make(map[string]float64, len(means))
		for profile, mean := range means {
			if best > 0 {
				slowdown[profile] = mean / best
			} else {
				slowdown[profile] = 1
			}
		}

		out = append(out, ProfileComparison{
			ScenarioID: scenarioID,
			Fastest:    fastest,
			MeansMs:    means,
			Slowdown:   slowdown,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScenarioID < out[j].ScenarioID
	})

	return out
}
