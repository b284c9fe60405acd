/*
Package identity resolves the current agent for a request.

PURPOSE:
  Authentication lives in an external identity provider; the dashboard sits
  behind a fronting proxy that has already established a session. This
  package only answers "which agent is making this request" and carries the
  display fields the UI needs. Every data-store access downstream is scoped
  by the resolved agent id.

PROVIDERS:
  HeaderProvider  trusts the proxy-injected identity headers (production)
  StaticProvider  fixed agent for tests and local development

SEE ALSO:
  - api/server.go: middleware that attaches the agent to the request context
  - store/sqlite: agent-scoped queries
*/
package identity

import (
	"context"
	"net/http"

	"github.com/warp/commission-engine/commission"
)

// Agent is the authenticated user of the dashboard.
type Agent struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// Provider resolves the agent behind an HTTP request.
type Provider interface {
	// Resolve returns the agent for the request, or an error when no
	// identity is present.
	Resolve(r *http.Request) (Agent, error)
}

// =============================================================================
// HEADER PROVIDER - proxy-injected identity
// =============================================================================

// Header names the fronting auth proxy injects.
const (
	HeaderAgentID = "X-Agent-Id"
	HeaderName    = "X-Agent-Name"
	HeaderEmail   = "X-Agent-Email"
	HeaderAvatar  = "X-Agent-Avatar"
)

// HeaderProvider reads the identity headers set by the auth proxy.
type HeaderProvider struct{}

func (HeaderProvider) Resolve(r *http.Request) (Agent, error) {
	id := r.Header.Get(HeaderAgentID)
	if id == "" {
		return Agent{}, &commission.NotFoundError{Kind: "agent identity", ID: "(missing header)"}
	}
	return Agent{
		ID:        id,
		Name:      r.Header.Get(HeaderName),
		Email:     r.Header.Get(HeaderEmail),
		AvatarURL: r.Header.Get(HeaderAvatar),
	}, nil
}

// =============================================================================
// STATIC PROVIDER - tests and local dev
// =============================================================================

// StaticProvider always resolves to a fixed agent.
type StaticProvider struct {
	Agent Agent
}

func (p StaticProvider) Resolve(*http.Request) (Agent, error) {
	return p.Agent, nil
}

// =============================================================================
// CONTEXT PLUMBING
// =============================================================================

type contextKey struct{}

// WithAgent attaches the resolved agent to the context.
func WithAgent(ctx context.Context, a Agent) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the agent attached by the middleware, if any.
func FromContext(ctx context.Context) (Agent, bool) {
	a, ok := ctx.Value(contextKey{}).(Agent)
	return a, ok
}
