package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore is the durable ledger of issued refresh tokens.
// It keeps at most one row per user.
type RefreshTokenStore interface {
	Issue(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (RefreshToken, error)
	GetByToken(ctx context.Context, token string) (RefreshToken, error)
	Rotate(ctx context.Context, userID uuid.UUID, oldToken, newToken string, expiresAt time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// SoftDeleteByToken deletes the user's row only while it still holds
	// token. ErrNotFound means the row was already rotated or deleted.
	SoftDeleteByToken(ctx context.Context, userID uuid.UUID, token string) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RefreshToken is a ledger row.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	DeletedAt *time.Time
}
