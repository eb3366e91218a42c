package catalog_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

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

// The whole builtin catalog must pass against the bundled server. Slow
// scenarios (delays) are skipped in -short mode.
func TestBuiltinCatalog(t *testing.T) {
	env := newEnv(t)

	for _, scenario := range catalog.Builtin() {
		scenario := scenario
		t.Run(scenario.ID, func(t *testing.T) {
			if testing.Short() && scenario.Slow {
				t.Skip("slow scenario")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			err := scenario.Run(ctx, env)
			assert.NoError(t, err)
		})
	}
}

func TestBuiltinCatalog_IDsUniqueAndGrouped(t *testing.T) {
	seen := make(map[string]bool)
	groups := make(map[string]bool)

	for _, s := range catalog.Builtin() {
		require.NotEmpty(t, s.ID)
		require.False(t, seen[s.ID], "duplicate scenario ID %s", s.ID)
		seen[s.ID] = true
		groups[s.Group] = true

		assert.Contains(t, s.ID, "/")
		assert.NotNil(t, s.Run)
	}

	// Every catalog group is represented
	for _, g := range catalog.GroupOrder {
		assert.True(t, groups[g], "group %s has no scenarios", g)
	}
}

func TestCheckErrorClassification(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	scenarios := catalog.Filter(catalog.Builtin(), "errors/status-500")
	require.Len(t, scenarios, 1)

	// Against the real server this passes.
	require.NoError(t, scenarios[0].Run(ctx, env))

	// With a path prefix in the way every endpoint 404s, so the scenario
	// sees the wrong status and reports a contract violation.
	brokenEnv := *env
	brokenEnv.BaseURL = env.BaseURL + "/missing"

	err := scenarios[0].Run(ctx, &brokenEnv)
	require.Error(t, err)
	assert.True(t, catalog.IsCheckError(err))
}

func TestFilter(t *testing.T) {
	all := catalog.Builtin()

	auth := catalog.Filter(all, "auth/*")
	require.NotEmpty(t, auth)
	for _, s := range auth {
		assert.Equal(t, "auth", s.Group)
	}

	byGroup := catalog.Filter(all, "compression")
	require.NotEmpty(t, byGroup)
	for _, s := range byGroup {
		assert.Equal(t, "compression", s.Group)
	}

	exact := catalog.Filter(all, "basic/get")
	require.Len(t, exact, 1)
	assert.Equal(t, "basic/get", exact[0].ID)

	suffix := catalog.Filter(all, "*json")
	require.NotEmpty(t, suffix)

	assert.Empty(t, catalog.Filter(all, "nonexistent/thing"))
	assert.Len(t, catalog.Filter(all, ""), len(all))
}

func TestGroupTitle(t *testing.T) {
	assert.Equal(t, "Authentication", catalog.GroupTitle("auth"))
	assert.Equal(t, "unknown", catalog.GroupTitle("unknown"))
}
