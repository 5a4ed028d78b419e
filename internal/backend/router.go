package backend

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
)

// #endregion

// Backend id prefixes understood by the router.
const (
	PrefixOpenAI   = "openai"
	PrefixCodec    = "codec"
	PrefixScripted = "scripted"
)

// ErrUnknownBackend is returned for backend ids whose prefix has no invoker.
var ErrUnknownBackend = errors.New("unknown backend")

// #region router

// Router is an agent.Invoker that dispatches on the backend id prefix, the
// part before the first ':'. The full id is passed through to the target.
// Register everything before the first Invoke; Router is read-only after.
type Router struct {
	routes map[string]agent.Invoker
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]agent.Invoker)}
}

// Register binds prefix to inv, replacing any previous binding.
func (r *Router) Register(prefix string, inv agent.Invoker) *Router {
	r.routes[prefix] = inv
	return r
}

// Prefixes lists the registered prefixes in sorted order.
func (r *Router) Prefixes() []string {
	out := make([]string, 0, len(r.routes))
	for p := range r.routes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Invoke implements agent.Invoker.
func (r *Router) Invoke(ctx context.Context, backendID, prompt string) (agent.Response, error) {
	prefix, _ := SplitBackendID(backendID)
	inv, ok := r.routes[prefix]
	if !ok {
		return agent.Response{}, fmt.Errorf("route %q: %w", backendID, ErrUnknownBackend)
	}
	return inv.Invoke(ctx, backendID, prompt)
}

// SplitBackendID splits "prefix:name" into its parts. An id without ':'
// is all prefix.
func SplitBackendID(backendID string) (prefix, name string) {
	prefix, name, _ = strings.Cut(backendID, ":")
	return prefix, name
}

// #endregion
