package cmd

import (
	"github.com/abdul-hamid-achik/binprobe/packages/probe"
)

// Exit codes for the binprobe CLI
const (
	// ExitSuccess indicates all scenarios passed
	ExitSuccess = 0

	// ExitScenarioFailure indicates one or more scenarios failed
	ExitScenarioFailure = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code alongside the error it reports.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(err error) error {
	return &exitError{code: ExitConfigError, err: err}
}

// runExitCode maps a finished run to the process exit code. Failures caused
// only by transport errors or timeouts mean the service could not be reached
// properly; any contract violation takes precedence and reports as a
// scenario failure.
func runExitCode(result *probe.RunResult) int {
	if result.Failed == 0 {
		return ExitSuccess
	}
	if result.Summary != nil && result.Summary.CheckFail == 0 {
		return ExitNetworkError
	}
	return ExitScenarioFailure
}
