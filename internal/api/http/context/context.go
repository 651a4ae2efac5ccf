// Package context carries the authenticated Identity through a request.
package context

import (
	"context"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/model"
)

type identityKey struct{}

// Manager stores and retrieves the request Identity.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// SetIdentityToContext returns a copy of ctx carrying identity.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentityFromContext returns the Identity set by the auth gate. An
// identity without a subject is reported as absent.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(model.Identity)
	if !ok || identity.UserID == uuid.Nil {
		return model.Identity{}, false
	}
	return identity, true
}
