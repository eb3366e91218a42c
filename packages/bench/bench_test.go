package bench_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/bench"
	"github.com/abdul-hamid-achik/binprobe/packages/binserve"
	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv(t *testing.T) *catalog.Env {
	t.Helper()

	server := httptest.NewServer(binserve.NewServer().Handler())
	t.Cleanup(server.Close)

	base := []httpx.ClientOption{
		httpx.WithDefaultHeader("User-Agent", catalog.UserAgent),
	}

	return &catalog.Env{
		BaseURL:    server.URL,
		Client:     httpx.NewClient(base...),
		NoRedirect: httpx.NewClient(append(base, httpx.WithFollowRedirects(false))...),
		NewSession: func() *httpx.Client {
			return httpx.NewClient(append(base, httpx.WithCookieJar())...)
		},
	}
}

func findScenario(t *testing.T, id string) *catalog.Scenario {
	t.Helper()
	for _, s := range catalog.Builtin() {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("scenario %s not in catalog", id)
	return nil
}

func TestBenchRun(t *testing.T) {
	if testing.Short() {
		t.Skip("timed benchmark")
	}

	var buf bytes.Buffer
	reporter := bench.NewReporter(
		bench.WithWriter(&buf),
		bench.WithNoColor(true),
		bench.WithNoProgress(true),
	)

	thresholds, err := bench.ParseThresholds("p95<10s,errors<50%")
	require.NoError(t, err)

	config := &bench.Config{
		Duration:    2 * time.Second,
		Rate:        20,
		MaxInFlight: 10,
		Thresholds:  thresholds,
	}

	runner := bench.NewRunner(config, findScenario(t, "basic/get"), newEnv(t), bench.WithReporter(reporter))
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "basic/get", result.Scenario)
	assert.True(t, result.Passed)
	assert.False(t, result.HasThresholdFailures())
	assert.Greater(t, result.Summary.TotalRequests, int64(10))
	assert.Zero(t, result.Summary.ErrorCount)
	assert.Contains(t, buf.String(), "BENCHMARK SUMMARY")
	assert.Contains(t, buf.String(), "basic/get")
}

func TestBenchRunWorkers(t *testing.T) {
	if testing.Short() {
		t.Skip("timed benchmark")
	}

	var buf bytes.Buffer
	reporter := bench.NewReporter(
		bench.WithWriter(&buf),
		bench.WithNoColor(true),
		bench.WithNoProgress(true),
	)

	config := &bench.Config{
		Duration:    time.Second,
		MaxInFlight: 10,
		Workers:     4,
		ThinkTime:   10 * time.Millisecond,
	}

	runner := bench.NewRunner(config, findScenario(t, "basic/get"), newEnv(t), bench.WithReporter(reporter))
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, result.Summary.TotalRequests, int64(4))
	assert.Zero(t, result.Summary.ErrorCount)
	assert.Contains(t, buf.String(), "Workers: 4")
}

func TestBenchRunInvalidConfig(t *testing.T) {
	config := &bench.Config{Duration: 0, Rate: 10, MaxInFlight: 1}
	runner := bench.NewRunner(config, findScenario(t, "basic/get"), newEnv(t))
	_, err := runner.Run(context.Background())
	assert.ErrorContains(t, err, "invalid config")
}
