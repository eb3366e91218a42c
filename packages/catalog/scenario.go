package catalog

import (
	"context"
	"strings"

	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
)

// Env is the execution environment a scenario runs in. Clients are shared
// across scenarios of one profile run; NewSession builds a private jar-backed
// client so cookie scenarios stay order-independent.
type Env struct {
	BaseURL    string
	Client     *httpx.Client
	NoRedirect *httpx.Client
	NewSession func() *httpx.Client
}

// URL joins a path onto the base URL.
func (e *Env) URL(path string) string {
	return strings.TrimSuffix(e.BaseURL, "/") + path
}

// RunFunc executes a scenario against an environment. A nil error means the
// scenario passed its checks; a CheckError means the service responded but
// violated the expected contract; any other error is a transport failure.
type RunFunc func(ctx context.Context, env *Env) error

// Scenario is one entry of the probe catalog.
type Scenario struct {
	ID    string // group/name, stable identifier
	Group string
	Name  string
	Slow  bool // involves /delay endpoints; skipped under --fast
	Run   RunFunc
}

// Group titles in catalog order, mirroring the classic comparison plan.
var GroupOrder = []string{
	"basic",
	"params",
	"body",
	"auth",
	"cookies",
	"errors",
	"redirects",
	"delays",
	"streaming",
	"compression",
	"parallel",
	"upload",
	"formats",
	"sessions",
}

var groupTitles = map[string]string{
	"basic":       "Basic verbs",
	"params":      "Query params and headers",
	"body":        "Request body formats",
	"auth":        "Authentication",
	"cookies":     "Cookies",
	"errors":      "Error statuses",
	"redirects":   "Redirects",
	"delays":      "Delays and timeouts",
	"streaming":   "Streaming",
	"compression": "Compression",
	"parallel":    "Sequential vs concurrent",
	"upload":      "File upload",
	"formats":     "Response formats",
	"sessions":    "Sessions",
}

// GroupTitle returns the human title for a group ID.
func GroupTitle(group string) string {
	if t, ok := groupTitles[group]; ok {
		return t
	}
	return group
}

// Filter returns the scenarios matching a group or ID pattern. An empty
// pattern matches everything. Patterns support a trailing or leading '*'.
func Filter(scenarios []*Scenario, pattern string) []*Scenario {
	if pattern == "" {
		return scenarios
	}

	var out []*Scenario
	for _, s := range scenarios {
		if matchesPattern(s.ID, pattern) || s.Group == pattern {
			out = append(out, s)
		}
	}
	return out
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1 {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(name, pattern[1:])
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}
	return name == pattern
}
