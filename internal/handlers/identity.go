package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/shiftlog/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// Headers set by the authenticating gateway in front of the service
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// WithIdentity returns a context carrying the authenticated caller
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the caller placed on the context by the identity middleware
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	if !ok || identity.IsZero() {
		return models.Identity{}, false
	}
	return identity, true
}

// RequireIdentity writes 401 and returns false when the request is unauthenticated
func RequireIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return models.Identity{}, false
	}
	return identity, true
}
