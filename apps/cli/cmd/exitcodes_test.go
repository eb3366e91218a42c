package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/abdul-hamid-achik/binprobe/packages/metrics"
	"github.com/abdul-hamid-achik/binprobe/packages/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigErrCarriesExitCode(t *testing.T) {
	cause := fmt.Errorf("bad flag")
	err := configErr(cause)

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, ExitConfigError, exit.code)
	assert.Equal(t, "bad flag", err.Error())
	assert.ErrorIs(t, err, cause)

	var missing *exitError
	assert.False(t, errors.As(fmt.Errorf("plain"), &missing))
}

func TestRunExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, runExitCode(&probe.RunResult{
		Passed:  5,
		Summary: &metrics.Summary{Total: 5, Passes: 5},
	}))

	assert.Equal(t, ExitScenarioFailure, runExitCode(&probe.RunResult{
		Passed:  4,
		Failed:  1,
		Summary: &metrics.Summary{Total: 5, Passes: 4, CheckFail: 1},
	}))

	assert.Equal(t, ExitNetworkError, runExitCode(&probe.RunResult{
		Failed:  5,
		Summary: &metrics.Summary{Total: 5, Errors: 3, Timeouts: 2},
	}))

	// Mixed failures still surface the contract violation.
	assert.Equal(t, ExitScenarioFailure, runExitCode(&probe.RunResult{
		Failed:  3,
		Summary: &metrics.Summary{Total: 5, Passes: 2, CheckFail: 1, Errors: 2},
	}))
}
