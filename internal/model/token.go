package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenCodec signs and verifies access and refresh tokens.
type TokenCodec interface {
	IssueAccess(userID uuid.UUID, elevated bool) (string, error)
	IssueRefresh(userID uuid.UUID) (string, error)
	ParseAccess(token string) (AccessClaims, error)
	ParseRefresh(token string) (RefreshClaims, error)
}

// AccessClaims are the verified claims of an access token.
type AccessClaims struct {
	UserID    uuid.UUID
	Elevated  bool
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// RefreshClaims are the verified claims of a refresh token.
type RefreshClaims struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}
