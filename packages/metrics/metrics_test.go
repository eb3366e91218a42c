package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder()
	r.Start()

	r.Record("pooled", "basic/get", 10*time.Millisecond, OutcomePass)
	r.Record("pooled", "basic/get", 12*time.Millisecond, OutcomePass)
	r.Record("pooled", "auth/basic", 8*time.Millisecond, OutcomeCheckFail)
	r.Record("fresh", "basic/get", 20*time.Millisecond, OutcomeError)
	r.Record("fresh", "delays/1s", 30*time.Second, OutcomeTimeout)

	r.Stop()
	s := r.Summary()

	assert.Equal(t, int64(5), s.Total)
	assert.Equal(t, int64(2), s.Passes)
	assert.Equal(t, int64(1), s.CheckFail)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(1), s.Timeouts)
	assert.False(t, s.Passed())
	assert.Greater(t, s.Duration, time.Duration(0))
}

func TestSummaryPercentiles(t *testing.T) {
	r := NewRecorder()
	for i := 1; i <= 100; i++ {
		r.Record("pooled", "basic/get", time.Duration(i)*time.Millisecond, OutcomePass)
	}

	s := r.Summary()
	assert.True(t, s.Passed())

	// 3 significant digits, so values land within a fraction of a percent.
	assert.InDelta(t, 50*time.Millisecond, s.P50, float64(time.Millisecond))
	assert.InDelta(t, 95*time.Millisecond, s.P95, float64(time.Millisecond))
	assert.InDelta(t, 100*time.Millisecond, s.Max, float64(time.Millisecond))
	assert.InDelta(t, 1*time.Millisecond, s.Min, float64(time.Microsecond)*10)
}

func TestSummarySeries(t *testing.T) {
	r := NewRecorder()
	r.Record("pooled", "basic/get", 10*time.Millisecond, OutcomePass)
	r.Record("pooled", "basic/get", 20*time.Millisecond, OutcomePass)
	r.Record("pooled", "basic/get", 30*time.Millisecond, OutcomeCheckFail)
	r.Record("fresh", "basic/get", 40*time.Millisecond, OutcomePass)

	s := r.Summary()
	require.Len(t, s.Series, 2)

	// Sorted by scenario then profile.
	fresh, pooled := s.Series[0], s.Series[1]
	assert.Equal(t, "fresh", fresh.Profile)
	assert.Equal(t, "pooled", pooled.Profile)

	assert.Equal(t, int64(3), pooled.Count)
	assert.Equal(t, int64(2), pooled.Passes)
	assert.Equal(t, int64(1), pooled.Fails)
	assert.InDelta(t, 10.0, pooled.MinMs, 0.01)
	assert.InDelta(t, 30.0, pooled.MaxMs, 0.01)
	assert.InDelta(t, 20.0, pooled.MeanMs, 0.01)
	assert.InDelta(t, 20.0, pooled.MedianMs, 0.01)
}

func TestRecordClampsOutOfRange(t *testing.T) {
	r := NewRecorder()
	r.Record("pooled", "basic/get", 0, OutcomePass)
	r.Record("pooled", "basic/get", 2*time.Minute, OutcomePass)

	s := r.Summary()
	assert.Equal(t, int64(2), s.Total)
	assert.LessOrEqual(t, s.Max, 61*time.Second)
}

func TestCompare(t *testing.T) {
	r := NewRecorder()
	r.Record("pooled", "basic/get", 10*time.Millisecond, OutcomePass)
	r.Record("fresh", "basic/get", 40*time.Millisecond, OutcomePass)
	r.Record("serial", "basic/get", 20*time.Millisecond, OutcomePass)
	// Single-profile scenario, excluded from the comparison.
	r.Record("pooled", "auth/basic", 5*time.Millisecond, OutcomePass)

	comparisons := Compare(r.Summary())
	require.Len(t, comparisons, 1)

	c := comparisons[0]
	assert.Equal(t, "basic/get", c.ScenarioID)
	assert.Equal(t, "pooled", c.Fastest)
	assert.Len(t, c.MeansMs, 3)
	assert.InDelta(t, 1.0, c.Slowdown["pooled"], 0.01)
	assert.InDelta(t, 4.0, c.Slowdown["fresh"], 0.01)
	assert.InDelta(t, 2.0, c.Slowdown["serial"], 0.01)
}

func TestCompareEmpty(t *testing.T) {
	r := NewRecorder()
	assert.Empty(t, Compare(r.Summary()))
}
