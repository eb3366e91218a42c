package bench

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector aggregates benchmark results.
type Collector struct {
	mu sync.RWMutex

	total    atomic.Int64
	success  atomic.Int64
	errors   atomic.Int64
	timeouts atomic.Int64

	// Latency histogram in microseconds.
	histogram *hdrhistogram.Histogram

	startTime time.Time
	endTime   time.Time
}

// Summary is the final aggregate of a benchmark run.
type Summary struct {
	Duration      time.Duration
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	TimeoutCount  int64

	RPS         float64
	SuccessRate float64
	ErrorRate   float64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration
}

// CurrentStats is a snapshot for real-time display.
type CurrentStats struct {
	Elapsed time.Duration
	Total   int64
	Errors  int64
	RPS     float64
	P50     time.Duration
	P95     time.Duration
}

// NewCollector creates a new Collector.
func NewCollector() *Collector {
	return &Collector{
		// 1us to 60s range, 3 significant digits
		histogram: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// Start marks the beginning of the measured window.
func (c *Collector) Start() {
	c.mu.Lock()
	c.startTime = time.Now()
	c.mu.Unlock()
}

// Stop marks the end of the measured window.
func (c *Collector) Stop() {
	c.mu.Lock()
	c.endTime = time.Now()
	c.mu.Unlock()
}

// Record records one scenario execution.
func (c *Collector) Record(duration time.Duration, err error) {
	c.total.Add(1)
	if err != nil {
		c.errors.Add(1)
	} else {
		c.success.Add(1)
	}

	latencyUs := duration.Microseconds()
	if latencyUs < 1 {
		latencyUs = 1
	}
	if latencyUs > 60_000_000 {
		latencyUs = 60_000_000
	}

	c.mu.Lock()
	_ = c.histogram.RecordValue(latencyUs)
	c.mu.Unlock()
}

// RecordTimeout records a timed-out execution. Timeouts count as errors.
func (c *Collector) RecordTimeout() {
	c.total.Add(1)
	c.timeouts.Add(1)
	c.errors.Add(1)
}

// Current returns a snapshot for the live progress display.
func (c *Collector) Current() CurrentStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elapsed := time.Since(c.startTime)
	total := c.total.Load()

	rps := float64(0)
	if elapsed.Seconds() > 0 {
		rps = float64(total) / elapsed.Seconds()
	}

	return CurrentStats{
		Elapsed: elapsed,
		Total:   total,
		Errors:  c.errors.Load(),
		RPS:     rps,
		P50:     time.Duration(c.histogram.ValueAtQuantile(50)) * time.Microsecond,
		P95:     time.Duration(c.histogram.ValueAtQuantile(95)) * time.Microsecond,
	}
}

// Summary returns the final benchmark summary.
func (c *Collector) Summary() *Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	duration := c.endTime.Sub(c.startTime)
	if c.endTime.IsZero() {
		duration = time.Since(c.startTime)
	}

	total := c.total.Load()
	success := c.success.Load()
	errs := c.errors.Load()

	rps := float64(0)
	if duration.Seconds() > 0 {
		rps = float64(total) / duration.Seconds()
	}

	successRate := float64(0)
	errorRate := float64(0)
	if total > 0 {
		successRate = float64(success) / float64(total)
		errorRate = float64(errs) / float64(total)
	}

	return &Summary{
		Duration:      duration,
		TotalRequests: total,
		SuccessCount:  success,
		ErrorCount:    errs,
		TimeoutCount:  c.timeouts.Load(),
		RPS:           rps,
		SuccessRate:   successRate,
		ErrorRate:     errorRate,
		P50:           time.Duration(c.histogram.ValueAtQuantile(50)) * time.Microsecond,
		P95:           time.Duration(c.histogram.ValueAtQuantile(95)) * time.Microsecond,
		P99:           time.Duration(c.histogram.ValueAtQuantile(99)) * time.Microsecond,
		Min:           time.Duration(c.histogram.Min()) * time.Microsecond,
		Max:           time.Duration(c.histogram.Max()) * time.Microsecond,
		Mean:          time.Duration(c.histogram.Mean()) * time.Microsecond,
		StdDev:        time.Duration(c.histogram.StdDev()) * time.Microsecond,
	}
}

// EvaluateThresholds checks the summary against the configured thresholds.
func EvaluateThresholds(s *Summary, t Thresholds) []ThresholdResult {
	var results []ThresholdResult

	checkLatency := func(name string, limit, actual time.Duration) {
		if limit <= 0 {
			return
		}
		results = append(results, ThresholdResult{
			Name:     name,
			Passed:   actual <= limit,
			Expected: fmt.Sprintf("<= %s", limit),
			Actual:   actual.Round(time.Microsecond).String(),
		})
	}

	checkLatency("p50", t.P50, s.P50)
	checkLatency("p95", t.P95, s.P95)
	checkLatency("p99", t.P99, s.P99)
	checkLatency("max", t.MaxLatency, s.Max)

	if t.ErrorRate > 0 {
		results = append(results, ThresholdResult{
			Name:     "errors",
			Passed:   s.ErrorRate <= t.ErrorRate,
			Expected: fmt.Sprintf("<= %.2f%%", t.ErrorRate*100),
			Actual:   fmt.Sprintf("%.2f%%", s.ErrorRate*100),
		})
	}

	if t.MinRPS > 0 {
		results = append(results, ThresholdResult{
			Name:     "rps",
			Passed:   s.RPS >= t.MinRPS,
			Expected: fmt.Sprintf(">= %.1f", t.MinRPS),
			Actual:   fmt.Sprintf("%.1f", s.RPS),
		})
	}

	return results
}
