package provider

// #region imports
import (
	"context"
	"fmt"
)

// #endregion

// #region router

// Router dispatches requests to the client registered for their target.
// Targets without an explicit client fall back to the primary client.
type Router struct {
	clients map[Target]Client
}

// NewRouter builds a router. primary must be non-nil; the other clients may
// be nil, in which case their targets are served by primary.
func NewRouter(primary, advanced, fallback Client) *Router {
	clients := map[Target]Client{
		TargetPrimary:  primary,
		TargetAdvanced: primary,
		TargetFallback: primary,
	}
	if advanced != nil {
		clients[TargetAdvanced] = advanced
	}
	if fallback != nil {
		clients[TargetFallback] = fallback
	}
	return &Router{clients: clients}
}

// Generate routes the request by its target.
func (r *Router) Generate(ctx context.Context, req Request) (Response, error) {
	client, ok := r.clients[req.Target]
	if !ok || client == nil {
		return Response{}, fmt.Errorf("no client registered for target %q", req.Target)
	}
	return client.Generate(ctx, req)
}

// #endregion router
