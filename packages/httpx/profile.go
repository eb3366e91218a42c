package httpx

import (
	"fmt"
	"net/http"
	"strings"
)

// Profile names a transport configuration under comparison. Each profile
// tunes the underlying http.Transport differently so the same scenario
// catalog can show how connection handling affects latency.
type Profile struct {
	Name        string
	Description string
	configure   func(*http.Transport)
}

// Apply tunes a transport according to the profile.
func (p *Profile) Apply(t *http.Transport) {
	if p != nil && p.configure != nil {
		p.configure(t)
	}
}

var profiles = []*Profile{
	{
		Name:        "pooled",
		Description: "keep-alive connection pool (default transport behavior)",
		configure:   func(t *http.Transport) {},
	},
	{
		Name:        "fresh",
		Description: "new connection per request, no keep-alive reuse",
		configure: func(t *http.Transport) {
			t.DisableKeepAlives = true
		},
	},
	{
		Name:        "serial",
		Description: "at most one connection per host",
		configure: func(t *http.Transport) {
			t.MaxConnsPerHost = 1
			t.MaxIdleConnsPerHost = 1
		},
	},
	{
		Name:        "nocompress",
		Description: "no automatic Accept-Encoding negotiation",
		configure: func(t *http.Transport) {
			t.DisableCompression = true
		},
	},
}

// Profiles returns all built-in transport profiles in display order.
func Profiles() []*Profile {
	return profiles
}

// DefaultProfile returns the profile used when none is requested.
func DefaultProfile() *Profile {
	return profiles[0]
}

// ProfileByName looks up a built-in profile.
func ProfileByName(name string) (*Profile, error) {
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown transport profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
}

// ProfileNames returns the names of all built-in profiles.
func ProfileNames() []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}
