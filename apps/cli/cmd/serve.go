package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdul-hamid-achik/binprobe/packages/binserve"
	"github.com/spf13/cobra"
)

var (
	servePortFlag    int
	serveVerboseFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local httpbin-compatible server",
	Long: `Start a local HTTP server implementing the httpbin endpoints the
scenario catalog uses. Useful for offline runs and hermetic testing.

Examples:
  binprobe serve
  binprobe serve --port 9000
  binprobe serve --verbose

Then, in another terminal:
  binprobe run http://localhost:8998`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().IntVarP(&servePortFlag, "port", "p", binserve.DefaultPort, "Port to listen on")
	serveCmd.Flags().BoolVarP(&serveVerboseFlag, "verbose", "v", false, "Log every request")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	server := binserve.NewServer(
		binserve.WithPort(servePortFlag),
		binserve.WithVerbose(serveVerboseFlag),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving httpbin endpoints on http://localhost:%d\n", servePortFlag)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return server.ListenAndServe(ctx)
}
