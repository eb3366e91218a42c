package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/bench"
	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench <base-url> <scenario>",
	Short: "Load-test a single scenario at a fixed rate",
	Long: `Run one catalog scenario repeatedly at a target rate and report latency
percentiles, throughput, and error rates.

Examples:
  binprobe bench https://httpbin.org basic/get
  binprobe bench http://localhost:8998 body/json --rate 100 --duration 1m
  binprobe bench http://localhost:8998 basic/get --threshold "p95<200ms,errors<1%"
  binprobe bench http://localhost:8998 basic/get --profile fresh --warmup 5s
  binprobe bench http://localhost:8998 basic/get --workers 20 --think 100ms`,
	Args: cobra.ExactArgs(2),
	RunE: benchCommand,
}

var (
	benchDurationFlag   string
	benchRateFlag       float64
	benchMaxFlag        int
	benchWarmupFlag     string
	benchWorkersFlag    int
	benchThinkFlag      string
	benchThresholdFlag  string
	benchProfileFlag    string
	benchJSONFlag       bool
	benchNoColorFlag    bool
	benchNoProgressFlag bool
	benchInsecureFlag   bool
	benchProxyFlag      string
)

func init() {
	benchCmd.Flags().StringVarP(&benchDurationFlag, "duration", "d", "30s", "Benchmark duration (e.g. 30s, 5m)")
	benchCmd.Flags().Float64VarP(&benchRateFlag, "rate", "r", 10, "Target requests per second")
	benchCmd.Flags().IntVar(&benchMaxFlag, "max-in-flight", 50, "Maximum concurrent scenario executions")
	benchCmd.Flags().StringVar(&benchWarmupFlag, "warmup", "0s", "Warmup time excluded from metrics")
	benchCmd.Flags().IntVar(&benchWorkersFlag, "workers", 0, "Fixed worker pool instead of rate pacing")
	benchCmd.Flags().StringVar(&benchThinkFlag, "think", "0s", "Pause between requests per worker")
	benchCmd.Flags().StringVar(&benchThresholdFlag, "threshold", "", "Pass/fail thresholds (e.g. \"p95<200ms,errors<1%\")")
	benchCmd.Flags().StringVarP(&benchProfileFlag, "profile", "P", "", "Transport profile to benchmark under")
	benchCmd.Flags().BoolVar(&benchJSONFlag, "json", false, "Output results as JSON")
	benchCmd.Flags().BoolVar(&benchNoColorFlag, "no-color", false, "Disable colored output")
	benchCmd.Flags().BoolVar(&benchNoProgressFlag, "no-progress", false, "Disable real-time progress display")
	benchCmd.Flags().BoolVarP(&benchInsecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	benchCmd.Flags().StringVar(&benchProxyFlag, "proxy", "", "Proxy URL for HTTP requests")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	baseURL, scenarioID := args[0], args[1]

	if err := httpx.ValidateURL(baseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	scenario := findScenario(scenarioID)
	if scenario == nil {
		return fmt.Errorf("unknown scenario %q (see 'binprobe list')", scenarioID)
	}

	duration, err := time.ParseDuration(benchDurationFlag)
	if err != nil {
		return configErr(fmt.Errorf("invalid duration value %q: %w", benchDurationFlag, err))
	}
	warmup, err := time.ParseDuration(benchWarmupFlag)
	if err != nil {
		return configErr(fmt.Errorf("invalid warmup value %q: %w", benchWarmupFlag, err))
	}
	think, err := time.ParseDuration(benchThinkFlag)
	if err != nil {
		return configErr(fmt.Errorf("invalid think value %q: %w", benchThinkFlag, err))
	}
	thresholds, err := bench.ParseThresholds(benchThresholdFlag)
	if err != nil {
		return configErr(err)
	}

	profile := httpx.DefaultProfile()
	if benchProfileFlag != "" {
		profile, err = httpx.ProfileByName(benchProfileFlag)
		if err != nil {
			return configErr(err)
		}
	}

	benchConfig := &bench.Config{
		Duration:    duration,
		Rate:        benchRateFlag,
		MaxInFlight: benchMaxFlag,
		Workers:     benchWorkersFlag,
		ThinkTime:   think,
		Warmup:      warmup,
		Thresholds:  thresholds,
	}

	env := benchEnv(baseURL, profile)

	reporter := bench.NewReporter(
		bench.WithNoColor(benchNoColorFlag),
		bench.WithNoProgress(benchNoProgressFlag || benchJSONFlag),
	)

	runner := bench.NewRunner(benchConfig, scenario, env, bench.WithReporter(reporter))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if benchJSONFlag {
		if err := reporter.JSONSummary(result.Scenario, result.Summary, result.Thresholds); err != nil {
			return err
		}
	}

	if result.HasThresholdFailures() {
		os.Exit(ExitScenarioFailure)
	}

	return nil
}

func findScenario(id string) *catalog.Scenario {
	for _, s := range catalog.Builtin() {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func benchEnv(baseURL string, profile *httpx.Profile) *catalog.Env {
	base := []httpx.ClientOption{
		httpx.WithProfile(profile),
		httpx.WithDefaultHeader("User-Agent", catalog.UserAgent),
	}
	if benchInsecureFlag {
		base = append(base, httpx.WithValidateSSL(false))
	}
	if benchProxyFlag != "" {
		base = append(base, httpx.WithProxy(benchProxyFlag))
	}

	return &catalog.Env{
		BaseURL:    baseURL,
		Client:     httpx.NewClient(base...),
		NoRedirect: httpx.NewClient(append(base, httpx.WithFollowRedirects(false))...),
		NewSession: func() *httpx.Client {
			return httpx.NewClient(append(base, httpx.WithCookieJar())...)
		},
	}
}
