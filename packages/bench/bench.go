package bench

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"golang.org/x/time/rate"
)

// Runner executes a benchmark against a single scenario.
type Runner struct {
	config    *Config
	scenario  *catalog.Scenario
	env       *catalog.Env
	collector *Collector
	reporter  *Reporter
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithReporter sets the reporter.
func WithReporter(reporter *Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

// NewRunner creates a benchmark runner for one scenario.
func NewRunner(config *Config, scenario *catalog.Scenario, env *catalog.Env, opts ...RunnerOption) *Runner {
	r := &Runner{
		config:    config,
		scenario:  scenario,
		env:       env,
		collector: NewCollector(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.reporter == nil {
		r.reporter = NewReporter()
	}

	return r
}

// Result holds the final result of a benchmark.
type Result struct {
	Scenario   string
	Summary    *Summary
	Thresholds []ThresholdResult
	Passed     bool
}

// HasThresholdFailures returns true if any thresholds failed.
func (r *Result) HasThresholdFailures() bool {
	for _, tr := range r.Thresholds {
		if !tr.Passed {
			return true
		}
	}
	return false
}

// Run executes the benchmark.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r.reporter.Header(r.scenario, r.config)

	ctx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	// Warmup runs outside the measured window.
	if r.config.Warmup > 0 {
		r.reporter.Info("Warming up for %s...", r.config.Warmup)
		warmupCtx, warmupCancel := context.WithTimeout(ctx, r.config.Warmup)
		r.loop(warmupCtx, nil)
		warmupCancel()
	}

	r.collector.Start()

	progressDone := make(chan struct{})
	go r.progressLoop(ctx, progressDone)

	r.loop(ctx, r.collector)

	r.collector.Stop()
	close(progressDone)
	r.reporter.ClearProgress()

	summary := r.collector.Summary()
	var thresholdResults []ThresholdResult
	if r.config.Thresholds.HasThresholds() {
		thresholdResults = EvaluateThresholds(summary, r.config.Thresholds)
	}

	r.reporter.Summary(summary, thresholdResults)

	passed := true
	for _, tr := range thresholdResults {
		if !tr.Passed {
			passed = false
			break
		}
	}

	return &Result{
		Scenario:   r.scenario.ID,
		Summary:    summary,
		Thresholds: thresholdResults,
		Passed:     passed,
	}, nil
}

// loop drives scenario executions until ctx expires. A nil collector
// discards results (warmup).
func (r *Runner) loop(ctx context.Context, collector *Collector) {
	if r.config.Workers > 0 {
		r.workerLoop(ctx, collector)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(r.config.Rate), 1)
	sem := make(chan struct{}, r.config.MaxInFlight)

	var wg sync.WaitGroup
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			err := r.scenario.Run(ctx, r.env)
			duration := time.Since(start)

			if collector == nil {
				return
			}
			if err != nil && ctx.Err() != nil {
				// The deadline ended the run, not the scenario.
				return
			}
			if isTimeout(err) {
				collector.RecordTimeout()
				return
			}
			collector.Record(duration, err)
		}()
	}

	wg.Wait()
}

// workerLoop drives a fixed pool of workers, each running the scenario back
// to back with an optional think pause between requests.
func (r *Runner) workerLoop(ctx context.Context, collector *Collector) {
	var wg sync.WaitGroup
	for i := 0; i < r.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for {
				if ctx.Err() != nil {
					return
				}

				start := time.Now()
				err := r.scenario.Run(ctx, r.env)
				duration := time.Since(start)

				if collector != nil {
					if err != nil && ctx.Err() != nil {
						// The deadline ended the run, not the scenario.
						return
					}
					if isTimeout(err) {
						collector.RecordTimeout()
					} else {
						collector.Record(duration, err)
					}
				}

				if r.config.ThinkTime > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(r.config.ThinkTime):
					}
				}
			}
		}()
	}
	wg.Wait()
}

func (r *Runner) progressLoop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reporter.Progress(r.collector.Current(), r.config.Duration)
		}
	}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
