package bench

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThresholds(t *testing.T) {
	th, err := ParseThresholds("p95<200ms,errors<1%,rps>50")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, th.P95)
	assert.InDelta(t, 0.01, th.ErrorRate, 0.0001)
	assert.InDelta(t, 50.0, th.MinRPS, 0.0001)
	assert.True(t, th.HasThresholds())

	th, err = ParseThresholds("p50 <= 10ms, p99<1s, max<5s")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, th.P50)
	assert.Equal(t, time.Second, th.P99)
	assert.Equal(t, 5*time.Second, th.MaxLatency)

	// Bare error rate without a percent sign is already a fraction.
	th, err = ParseThresholds("errors<0.05")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, th.ErrorRate, 0.0001)

	th, err = ParseThresholds("")
	require.NoError(t, err)
	assert.False(t, th.HasThresholds())
}

func TestParseThresholdsErrors(t *testing.T) {
	cases := []string{
		"p95>200ms",    // latency needs an upper bound
		"rps<50",       // rps needs a lower bound
		"p95<banana",   // not a duration
		"cpu<50%",      // unknown metric
		"p95 200ms",    // missing operator
		"errors<many%", // not a number
	}
	for _, c := range cases {
		_, err := ParseThresholds(c)
		assert.Error(t, err, c)
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"zero rate", func(c *Config) { c.Rate = 0 }},
		{"zero in-flight", func(c *Config) { c.MaxInFlight = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative think time", func(c *Config) { c.ThinkTime = -time.Second }},
		{"negative warmup", func(c *Config) { c.Warmup = -time.Second }},
		{"warmup past duration", func(c *Config) { c.Warmup = time.Minute }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	// Worker mode needs no rate.
	c := DefaultConfig()
	c.Rate = 0
	c.Workers = 10
	assert.NoError(t, c.Validate())
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Start()

	for i := 0; i < 9; i++ {
		c.Record(10*time.Millisecond, nil)
	}
	c.Record(50*time.Millisecond, errors.New("boom"))
	c.RecordTimeout()

	c.Stop()
	s := c.Summary()

	assert.Equal(t, int64(11), s.TotalRequests)
	assert.Equal(t, int64(9), s.SuccessCount)
	assert.Equal(t, int64(2), s.ErrorCount)
	assert.Equal(t, int64(1), s.TimeoutCount)
	assert.InDelta(t, 9.0/11.0, s.SuccessRate, 0.001)
	assert.InDelta(t, 2.0/11.0, s.ErrorRate, 0.001)
	assert.InDelta(t, 10*time.Millisecond, s.P50, float64(time.Millisecond))
	assert.Greater(t, s.RPS, 0.0)
}

func TestEvaluateThresholds(t *testing.T) {
	s := &Summary{
		P50:       10 * time.Millisecond,
		P95:       90 * time.Millisecond,
		P99:       150 * time.Millisecond,
		Max:       200 * time.Millisecond,
		ErrorRate: 0.02,
		RPS:       45,
	}

	results := EvaluateThresholds(s, Thresholds{
		P95:        100 * time.Millisecond,
		MaxLatency: 100 * time.Millisecond,
		ErrorRate:  0.01,
		MinRPS:     40,
	})
	require.Len(t, results, 4)

	byName := make(map[string]ThresholdResult)
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.True(t, byName["p95"].Passed)
	assert.False(t, byName["max"].Passed)
	assert.False(t, byName["errors"].Passed)
	assert.True(t, byName["rps"].Passed)

	assert.Empty(t, EvaluateThresholds(s, Thresholds{}))
}
