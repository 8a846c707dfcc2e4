package upstream

import (
	"strings"

	"github.com/registryx/repo-worker/pkg/config"
)

// Registry is the set of configured upstream clients, populated once at
// startup per SPEC_FULL.md §9 design note "runtime-discovered upstream
// dispatch → tagged variants" (here: a plain map of name → *Client, since
// every upstream speaks the identical HEAD/GET manifest/blob interface).
type Registry struct {
	clients map[string]*Client
}

// NewRegistry builds a Client for every configured upstream.
func NewRegistry(upstreams map[string]config.Upstream) *Registry {
	clients := make(map[string]*Client, len(upstreams))
	for name, u := range upstreams {
		clients[name] = New(u)
	}
	return &Registry{clients: clients}
}

// Lookup returns the client for a named upstream, or nil if unconfigured.
func (r *Registry) Lookup(name string) *Client {
	return r.clients[strings.ToLower(name)]
}
