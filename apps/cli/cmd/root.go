package cmd

import (
	"errors"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "binprobe",
	Short: "Probe httpbin-compatible services across HTTP transport profiles",
	Long: `binprobe runs a built-in catalog of httpbin scenarios against a target
service, once per transport profile, timing every call and verifying each
response against the httpbin contract. Use it to smoke-test an httpbin
deployment or to compare how transport settings affect latency.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetHandler(cli.New(os.Stderr))
		if rootVerboseFlag {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.WarnLevel)
		}
	},
}

var rootVerboseFlag bool

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootVerboseFlag, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
