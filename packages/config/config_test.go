package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, []string{"pooled"}, c.Profiles)
	assert.Equal(t, 1, c.Repeats)
	assert.Equal(t, 30000, c.Timeout)
	assert.Equal(t, 5, c.Concurrency)
	assert.Equal(t, "console", c.Output)
	assert.False(t, c.GetParallel())
	assert.False(t, c.GetFast())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetVerbose())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
baseUrl: http://localhost:8080
profiles: [pooled, fresh]
repeats: 3
parallel: true
validateSSL: false
output: json
`), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", c.BaseURL)
	assert.Equal(t, []string{"pooled", "fresh"}, c.Profiles)
	assert.Equal(t, 3, c.Repeats)
	assert.True(t, c.GetParallel())
	assert.False(t, c.GetValidateSSL())
	assert.Equal(t, "json", c.Output)

	// Unset fields keep their defaults.
	assert.Equal(t, 30000, c.Timeout)
	assert.Equal(t, 5, c.Concurrency)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [unclosed"), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "parsing")
}

func TestFindAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".binprobe.yaml"),
		[]byte("filter: auth/*\n"), 0o644))

	c, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "auth/*", c.Filter)

	// An empty directory falls back to defaults.
	c, err = FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.BaseURL = "http://localhost:8080"
	base.NoColor = BoolPtr(true)

	merged := base.Merge(&Config{
		BaseURL:  "http://example.com",
		Profiles: []string{"serial"},
		Fast:     BoolPtr(true),
		NoColor:  BoolPtr(false),
	})

	assert.Equal(t, "http://example.com", merged.BaseURL)
	assert.Equal(t, []string{"serial"}, merged.Profiles)
	assert.True(t, merged.GetFast())
	assert.False(t, merged.GetNoColor())

	// Fields absent from the overlay survive.
	assert.Equal(t, 1, merged.Repeats)
	assert.Equal(t, "console", merged.Output)

	// The receiver is not mutated.
	assert.Equal(t, "http://localhost:8080", base.BaseURL)
	assert.True(t, base.GetNoColor())

	assert.Equal(t, base, base.Merge(nil))
}
