package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/abdul-hamid-achik/binprobe/packages/config"
	"github.com/abdul-hamid-achik/binprobe/packages/history"
	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/abdul-hamid-achik/binprobe/packages/output"
	"github.com/abdul-hamid-achik/binprobe/packages/probe"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <base-url>",
	Short: "Run the scenario catalog against a target service",
	Long: `Run the built-in httpbin scenario catalog against a target service.

Each scenario is executed once per transport profile and its response is
checked against the httpbin contract.

Examples:
  binprobe run https://httpbin.org
  binprobe run http://localhost:8998 --profile pooled,fresh
  binprobe run https://httpbin.org --filter auth/*
  binprobe run https://httpbin.org --parallel --fast
  binprobe run http://localhost:8998 --repeats 5 --profile pooled,fresh,serial
  binprobe run http://localhost:8998 --suite extra.yaml --watch
  binprobe run https://httpbin.org --output junit --output-file report.xml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCommand,
}

var (
	profilesFlag    string
	repeatsFlag     int
	parallelFlag    bool
	concurrencyFlag int
	fastFlag        bool
	filterFlag      string
	timeoutFlag     string
	insecureFlag    bool
	proxyFlag       string
	suiteFlag       string
	watchFlag       bool
	outputFlag      string
	outputFileFlag  string
	noColorFlag     bool
	noProgressFlag  bool
	verboseFlag     bool
	saveFlag        bool
	historyPathFlag string
	configFlag      string
)

func init() {
	runCmd.Flags().StringVarP(&profilesFlag, "profile", "P", "", "Transport profiles to run, comma-separated (pooled, fresh, serial, nocompress)")
	runCmd.Flags().IntVar(&repeatsFlag, "repeats", 0, "Times to run each scenario per profile")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", false, "Run scenarios concurrently within a profile")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Concurrent scenarios when running in parallel")
	runCmd.Flags().BoolVar(&fastFlag, "fast", false, "Skip slow scenarios (delays, streaming)")
	runCmd.Flags().StringVarP(&filterFlag, "filter", "f", "", "Run only scenarios matching pattern (e.g. auth/*, *timeout)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", "", "Request timeout (e.g. 30s, 1m)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", "", "Proxy URL for HTTP requests")
	runCmd.Flags().StringVar(&suiteFlag, "suite", "", "YAML file with additional scenarios")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the suite file for changes and re-run")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output format: console, json, junit, tap")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write output to file (default: stdout)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	runCmd.Flags().BoolVar(&noProgressFlag, "no-progress", false, "Disable the progress bar")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolVar(&saveFlag, "save", false, "Save the run to local history")
	runCmd.Flags().StringVar(&historyPathFlag, "history-path", "", "Path to the history database")
	runCmd.Flags().StringVar(&configFlag, "config", "", "Path to config file")
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *probe.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := mergedConfig(args)
	if err != nil {
		return configErr(err)
	}

	if cfg.BaseURL == "" {
		return configErr(fmt.Errorf("base URL required (argument or baseUrl in config)"))
	}

	scenarios := catalog.Builtin()
	if suiteFlag != "" {
		extra, err := catalog.LoadSuite(suiteFlag)
		if err != nil {
			return configErr(fmt.Errorf("loading suite: %w", err))
		}
		scenarios = append(scenarios, extra...)
	}

	probeConfig := &probe.Config{
		BaseURL:     cfg.BaseURL,
		Profiles:    cfg.Profiles,
		Repeats:     cfg.Repeats,
		Parallel:    cfg.GetParallel(),
		Concurrency: cfg.Concurrency,
		Fast:        cfg.GetFast(),
		Filter:      cfg.Filter,
		Timeout:     time.Duration(cfg.Timeout) * time.Millisecond,
		Insecure:    !cfg.GetValidateSSL(),
		Proxy:       cfg.Proxy,
		NoProgress:  cfg.GetNoProgress() || cfg.Output != "console",
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func() (*probe.RunResult, error) {
		formatter, outWriter, err := newFormatter(cfg)
		if err != nil {
			return nil, err
		}
		if outWriter != nil {
			defer outWriter.Close()
		}

		formatter.FormatHeader(version)

		runner := probe.NewRunner(probeConfig, scenarios)
		result, err := runner.Run(ctx)
		if err != nil {
			formatter.FormatError(err)
			return nil, err
		}

		formatter.FormatResult(result)
		if flushable, ok := formatter.(Flushable); ok {
			if err := flushable.Flush(result.Duration); err != nil {
				return nil, fmt.Errorf("error writing output: %w", err)
			}
		}

		if saveFlag {
			if id, err := saveRun(ctx, cfg, result); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to save run: %v\n", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved run %s\n", shortID(id))
			}
		}

		return result, nil
	}

	result, err := runOnce()
	if err != nil {
		return err
	}

	if !watchFlag {
		if code := runExitCode(result); code != ExitSuccess {
			os.Exit(code)
		}
		return nil
	}

	if suiteFlag == "" {
		return configErr(fmt.Errorf("--watch requires --suite"))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (Ctrl+C to stop)\n", suiteFlag)

	err = probe.Watch(ctx, suiteFlag, func() {
		extra, err := catalog.LoadSuite(suiteFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "suite reload failed: %v\n", err)
			return
		}
		scenarios = append(catalog.Builtin(), extra...)
		if _, err := runOnce(); err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (Ctrl+C to stop)\n", suiteFlag)
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

// mergedConfig loads the config file and applies CLI flag overrides.
func mergedConfig(args []string) (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	overrides := &config.Config{}
	if len(args) > 0 {
		overrides.BaseURL = args[0]
	}
	if profilesFlag != "" {
		for _, p := range strings.Split(profilesFlag, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, err := httpx.ProfileByName(p); err != nil {
				return nil, err
			}
			overrides.Profiles = append(overrides.Profiles, p)
		}
	}
	if repeatsFlag > 0 {
		overrides.Repeats = repeatsFlag
	}
	if timeoutFlag != "" {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		overrides.Timeout = int(timeout.Milliseconds())
	}
	if parallelFlag {
		overrides.Parallel = config.BoolPtr(true)
	}
	if concurrencyFlag > 0 {
		overrides.Concurrency = concurrencyFlag
	}
	if fastFlag {
		overrides.Fast = config.BoolPtr(true)
	}
	if filterFlag != "" {
		overrides.Filter = filterFlag
	}
	if insecureFlag {
		overrides.ValidateSSL = config.BoolPtr(false)
	}
	if proxyFlag != "" {
		overrides.Proxy = proxyFlag
	}
	if outputFlag != "" {
		overrides.Output = outputFlag
	}
	if historyPathFlag != "" {
		overrides.HistoryPath = historyPathFlag
	}
	if verboseFlag {
		overrides.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		overrides.NoColor = config.BoolPtr(true)
	}
	if noProgressFlag {
		overrides.NoProgress = config.BoolPtr(true)
	}

	return fileConfig.Merge(overrides), nil
}

// newFormatter builds the formatter for the configured output format.
func newFormatter(cfg *config.Config) (Formatter, *os.File, error) {
	var outWriter *os.File
	var err error
	if outputFileFlag != "" {
		outWriter, err = os.Create(outputFileFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create output file: %w", err)
		}
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Output) {
	case "json":
		opts := []output.JSONOption{}
		if outWriter != nil {
			opts = append(opts, output.JSONWithWriter(outWriter))
		}
		formatter = output.NewJSONFormatter(opts...)
	case "junit":
		opts := []output.JUnitOption{}
		if outWriter != nil {
			opts = append(opts, output.JUnitWithWriter(outWriter))
		}
		formatter = output.NewJUnitFormatter(opts...)
	case "tap":
		opts := []output.TAPOption{}
		if outWriter != nil {
			opts = append(opts, output.TAPWithWriter(outWriter))
		}
		formatter = output.NewTAPFormatter(opts...)
	case "", "console":
		consoleOpts := []output.ConsoleOption{
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
		}
		if outWriter != nil {
			consoleOpts = append(consoleOpts, output.WithWriter(outWriter))
		}
		formatter = output.NewConsoleFormatter(consoleOpts...)
	default:
		if outWriter != nil {
			_ = outWriter.Close()
		}
		return nil, nil, fmt.Errorf("unknown output format %q (use console, json, junit, or tap)", cfg.Output)
	}

	return formatter, outWriter, nil
}

func saveRun(ctx context.Context, cfg *config.Config, result *probe.RunResult) (string, error) {
	path := cfg.HistoryPath
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			return "", err
		}
	}

	store, err := history.Open(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	return store.Save(ctx, result)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
