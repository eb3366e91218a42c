package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/abdul-hamid-achik/binprobe/packages/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func runResult(passed bool, durationMs int64) *probe.RunResult {
	scenario := &catalog.Scenario{ID: "basic/get", Group: "basic", Name: "GET echoes args"}

	attempt := probe.Attempt{Duration: time.Duration(durationMs) * time.Millisecond}
	if !passed {
		attempt.Err = &catalog.CheckError{Reason: "expected status 200, got 500"}
	}

	result := &probe.RunResult{
		BaseURL:  "http://localhost:8080",
		Profiles: []string{"pooled"},
		Results: []*probe.ScenarioResult{{
			Scenario: scenario,
			Profile:  "pooled",
			Attempts: []probe.Attempt{attempt},
			Passed:   passed,
		}},
		Duration: time.Duration(durationMs) * time.Millisecond,
	}
	if passed {
		result.Passed = 1
	} else {
		result.Failed = 1
	}
	return result
}

func TestSaveAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id1, err := store.Save(ctx, runResult(true, 12))
	require.NoError(t, err)
	id2, err := store.Save(ctx, runResult(false, 30))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest := runs[0]
	assert.Equal(t, "http://localhost:8080", latest.BaseURL)
	assert.Equal(t, []string{"pooled"}, latest.Profiles)
	assert.False(t, latest.StartedAt.IsZero())
}

func TestGetByPrefix(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, runResult(true, 12))
	require.NoError(t, err)

	rec, err := store.Get(ctx, id[:8])
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	_, err = store.Get(ctx, "ffffffff")
	assert.ErrorContains(t, err, "not found")
}

func TestLatest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorContains(t, err, "no runs recorded")

	_, err = store.Save(ctx, runResult(true, 12))
	require.NoError(t, err)
	id, err := store.Save(ctx, runResult(false, 30))
	require.NoError(t, err)

	rec, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
}

func TestResolve(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Resolve(ctx, "latest")
	assert.ErrorContains(t, err, "no runs recorded")

	first, err := store.Save(ctx, runResult(true, 12))
	require.NoError(t, err)
	second, err := store.Save(ctx, runResult(false, 30))
	require.NoError(t, err)

	rec, err := store.Resolve(ctx, "latest")
	require.NoError(t, err)
	assert.Equal(t, second, rec.ID)

	rec, err = store.Resolve(ctx, first[:8])
	require.NoError(t, err)
	assert.Equal(t, first, rec.ID)
}

func TestResults(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, runResult(false, 30))
	require.NoError(t, err)

	results, err := store.Results(ctx, id)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "basic/get", r.ScenarioID)
	assert.Equal(t, "pooled", r.Profile)
	assert.False(t, r.Passed)
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, 30*time.Millisecond, r.Duration)
	assert.Equal(t, "expected status 200, got 500", r.Error)
}

func TestCompare(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	beforeID, err := store.Save(ctx, runResult(true, 10))
	require.NoError(t, err)
	afterID, err := store.Save(ctx, runResult(false, 25))
	require.NoError(t, err)

	deltas, err := store.Compare(ctx, beforeID, afterID)
	require.NoError(t, err)
	require.Len(t, deltas, 1)

	d := deltas[0]
	assert.Equal(t, "basic/get", d.ScenarioID)
	assert.True(t, d.Regressed)
	assert.False(t, d.Fixed)
	assert.Equal(t, int64(15), d.DurationMs)

	// Reversed, the same pair reads as a fix.
	deltas, err = store.Compare(ctx, afterID, beforeID)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.True(t, deltas[0].Fixed)
	assert.False(t, deltas[0].Regressed)
}

func TestCompareDisjointRuns(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	beforeID, err := store.Save(ctx, runResult(true, 10))
	require.NoError(t, err)

	other := runResult(true, 10)
	other.Results[0].Scenario = &catalog.Scenario{ID: "auth/basic", Group: "auth", Name: "basic auth accepted"}
	afterID, err := store.Save(ctx, other)
	require.NoError(t, err)

	deltas, err := store.Compare(ctx, beforeID, afterID)
	require.NoError(t, err)
	require.Len(t, deltas, 2)

	byScenario := make(map[string]*Delta)
	for _, d := range deltas {
		byScenario[d.ScenarioID] = d
	}
	assert.Nil(t, byScenario["auth/basic"].Before)
	assert.Nil(t, byScenario["basic/get"].After)
}
