// Package probe executes the scenario catalog against a target service and
// collects timing and outcome data per transport profile.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/abdul-hamid-achik/binprobe/packages/metrics"
	"github.com/apex/log"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRepeats is how many times each scenario runs per profile.
	DefaultRepeats = 1
	// DefaultConcurrency bounds parallel scenario execution.
	DefaultConcurrency = 5
)

// Config controls a probe run.
type Config struct {
	BaseURL     string
	Profiles    []string
	Repeats     int
	Parallel    bool
	Concurrency int
	Fast        bool // skip scenarios flagged Slow
	Filter      string
	Timeout     time.Duration
	Insecure    bool
	Proxy       string
	NoProgress  bool
}

// Runner executes scenarios and records metrics.
type Runner struct {
	config    *Config
	scenarios []*catalog.Scenario
	recorder  *metrics.Recorder
}

// Attempt is one timed execution of a scenario.
type Attempt struct {
	Duration time.Duration
	Err      error
}

// ScenarioResult aggregates the attempts of one scenario under one profile.
type ScenarioResult struct {
	Scenario   *catalog.Scenario
	Profile    string
	Attempts   []Attempt
	Passed     bool
	Skipped    bool
	SkipReason string
}

// Err returns the first attempt failure, or nil when all attempts passed.
func (r *ScenarioResult) Err() error {
	for _, a := range r.Attempts {
		if a.Err != nil {
			return a.Err
		}
	}
	return nil
}

// Duration returns the total time spent across attempts.
func (r *ScenarioResult) Duration() time.Duration {
	var total time.Duration
	for _, a := range r.Attempts {
		total += a.Duration
	}
	return total
}

// RunResult is the outcome of a whole probe run.
type RunResult struct {
	BaseURL     string
	Profiles    []string
	Results     []*ScenarioResult
	Summary     *metrics.Summary
	Comparisons []metrics.ProfileComparison
	Duration    time.Duration
	Passed      int
	Failed      int
	Skipped     int
}

// NewRunner creates a runner over the given scenarios.
func NewRunner(config *Config, scenarios []*catalog.Scenario) *Runner {
	if config.Repeats <= 0 {
		config.Repeats = DefaultRepeats
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if len(config.Profiles) == 0 {
		config.Profiles = []string{httpx.DefaultProfile().Name}
	}

	return &Runner{
		config:    config,
		scenarios: catalog.Filter(scenarios, config.Filter),
		recorder:  metrics.NewRecorder(),
	}
}

// Run executes every selected scenario under every selected profile.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if len(r.scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios match filter %q", r.config.Filter)
	}

	if err := httpx.ValidateURL(r.config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	profiles := make([]*httpx.Profile, 0, len(r.config.Profiles))
	for _, name := range r.config.Profiles {
		p, err := httpx.ProfileByName(name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	bar := r.newProgressBar(len(profiles) * len(r.scenarios))

	result := &RunResult{
		BaseURL:  r.config.BaseURL,
		Profiles: r.config.Profiles,
	}

	start := time.Now()
	r.recorder.Start()

	for _, profile := range profiles {
		env := r.buildEnv(profile)
		log.WithFields(log.Fields{
			"profile": profile.Name,
			"base":    r.config.BaseURL,
		}).Debug("starting profile pass")

		profileResults, err := r.runProfile(ctx, profile, env, bar)
		result.Results = append(result.Results, profileResults...)
		if err != nil {
			return nil, err
		}
	}

	r.recorder.Stop()
	result.Duration = time.Since(start)
	result.Summary = r.recorder.Summary()
	result.Comparisons = metrics.Compare(result.Summary)

	for _, sr := range result.Results {
		switch {
		case sr.Skipped:
			result.Skipped++
		case sr.Passed:
			result.Passed++
		default:
			result.Failed++
		}
	}

	return result, nil
}

func (r *Runner) runProfile(ctx context.Context, profile *httpx.Profile, env *catalog.Env, bar *progressbar.ProgressBar) ([]*ScenarioResult, error) {
	results := make([]*ScenarioResult, len(r.scenarios))

	if r.config.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.config.Concurrency)

		var mu sync.Mutex
		for i, scenario := range r.scenarios {
			i, scenario := i, scenario
			g.Go(func() error {
				sr := r.runScenario(gctx, profile, env, scenario)
				mu.Lock()
				results[i] = sr
				mu.Unlock()
				if bar != nil {
					_ = bar.Add(1)
				}
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return compact(results), err
		}
		return results, nil
	}

	for i, scenario := range r.scenarios {
		if err := ctx.Err(); err != nil {
			return compact(results), err
		}
		results[i] = r.runScenario(ctx, profile, env, scenario)
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	return results, nil
}

func (r *Runner) runScenario(ctx context.Context, profile *httpx.Profile, env *catalog.Env, scenario *catalog.Scenario) *ScenarioResult {
	sr := &ScenarioResult{
		Scenario: scenario,
		Profile:  profile.Name,
	}

	if r.config.Fast && scenario.Slow {
		sr.Skipped = true
		sr.SkipReason = "slow scenario skipped in fast mode"
		return sr
	}

	sr.Passed = true
	for attempt := 0; attempt < r.config.Repeats; attempt++ {
		start := time.Now()
		err := scenario.Run(ctx, env)
		duration := time.Since(start)

		sr.Attempts = append(sr.Attempts, Attempt{Duration: duration, Err: err})
		r.recorder.Record(profile.Name, scenario.ID, duration, classify(err))

		if err != nil {
			sr.Passed = false
			log.WithFields(log.Fields{
				"scenario": scenario.ID,
				"profile":  profile.Name,
			}).WithError(err).Debug("scenario failed")
		}
	}

	return sr
}

func (r *Runner) buildEnv(profile *httpx.Profile) *catalog.Env {
	base := r.clientOptions(profile)

	newSession := func() *httpx.Client {
		return httpx.NewClient(append(base, httpx.WithCookieJar())...)
	}

	return &catalog.Env{
		BaseURL:    r.config.BaseURL,
		Client:     httpx.NewClient(base...),
		NoRedirect: httpx.NewClient(append(base, httpx.WithFollowRedirects(false))...),
		NewSession: newSession,
	}
}

func (r *Runner) clientOptions(profile *httpx.Profile) []httpx.ClientOption {
	opts := []httpx.ClientOption{
		httpx.WithProfile(profile),
		httpx.WithDefaultHeader("User-Agent", catalog.UserAgent),
	}
	if r.config.Timeout > 0 {
		opts = append(opts, httpx.WithTimeout(r.config.Timeout))
	}
	if r.config.Insecure {
		opts = append(opts, httpx.WithValidateSSL(false))
	}
	if r.config.Proxy != "" {
		opts = append(opts, httpx.WithProxy(r.config.Proxy))
	}
	return opts
}

func (r *Runner) newProgressBar(total int) *progressbar.ProgressBar {
	if r.config.NoProgress {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("probing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}

// classify maps a scenario error to a metrics outcome.
func classify(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomePass
	case catalog.IsCheckError(err):
		return metrics.OutcomeCheckFail
	case errors.Is(err, context.DeadlineExceeded), isNetTimeout(err):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func compact(results []*ScenarioResult) []*ScenarioResult {
	out := results[:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
