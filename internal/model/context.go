package model

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated subject of a request.
type Identity struct {
	UserID   uuid.UUID
	Elevated bool
}

type ContextManager interface {
	SetIdentityToContext(ctx context.Context, identity Identity) context.Context
	GetIdentityFromContext(ctx context.Context) (Identity, bool)
}
