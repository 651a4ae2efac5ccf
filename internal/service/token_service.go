package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
)

const accessTokenKeyPrefix = "access_token:"

// Revocation is the allow-list of live access tokens. A token is usable
// only while its entry exists, regardless of its embedded expiry.
type Revocation struct {
	cache model.Cache
	ttl   time.Duration
}

func NewRevocation(cache model.Cache, ttl time.Duration) *Revocation {
	return &Revocation{cache: cache, ttl: ttl}
}

func accessTokenKey(token string) string {
	return accessTokenKeyPrefix + token
}

// Register marks token live for the configured window.
func (r *Revocation) Register(ctx context.Context, token string) error {
	if err := r.cache.Set(ctx, accessTokenKey(token), token, r.ttl); err != nil {
		return fmt.Errorf("failed to register access token: %w", err)
	}
	return nil
}

// IsLive reports whether token is still allow-listed. Callers must treat
// a non-nil error as not live.
func (r *Revocation) IsLive(ctx context.Context, token string) (bool, error) {
	val, err := r.cache.Get(ctx, accessTokenKey(token))
	if err != nil {
		if errors.Is(err, model.ErrCacheMiss) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check access token: %w", err)
	}
	return val == token, nil
}

// Revoke removes token from the allow-list. Revoking an absent token is not an error.
func (r *Revocation) Revoke(ctx context.Context, token string) error {
	if err := r.cache.Delete(ctx, accessTokenKey(token)); err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}
	return nil
}

// TokenService provides high-level operations for issuing, verifying,
// rotating and revoking tokens. It composes the TokenCodec, the refresh
// token ledger and the access token allow-list.
type TokenService struct {
	codec      model.TokenCodec
	ledger     model.RefreshTokenStore
	revocation *Revocation
	refreshTTL time.Duration
	now        func() time.Time
	logger     *logger.Logger
}

func NewTokenService(
	codec model.TokenCodec,
	ledger model.RefreshTokenStore,
	revocation *Revocation,
	refreshTTL time.Duration,
	logger *logger.Logger,
) *TokenService {
	return &TokenService{
		codec:      codec,
		ledger:     ledger,
		revocation: revocation,
		refreshTTL: refreshTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Issue mints an access/refresh pair, records the refresh token in the
// ledger (replacing any previous one for the user) and allow-lists the
// access token.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, elevated bool) (accessToken string, refreshToken string, err error) {
	refresh, err := s.codec.IssueRefresh(userID)
	if err != nil {
		return "", "", fmt.Errorf("issue refresh: %w", err)
	}

	if _, err := s.ledger.Issue(ctx, userID, refresh, s.now().Add(s.refreshTTL)); err != nil {
		return "", "", fmt.Errorf("persist refresh: %w", err)
	}

	access, err := s.IssueAccess(ctx, userID, elevated)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

// IssueAccess mints an access token and allow-lists it.
func (s *TokenService) IssueAccess(ctx context.Context, userID uuid.UUID, elevated bool) (string, error) {
	access, err := s.codec.IssueAccess(userID, elevated)
	if err != nil {
		return "", fmt.Errorf("issue access: %w", err)
	}

	if err := s.revocation.Register(ctx, access); err != nil {
		return "", err
	}

	return access, nil
}

// VerifyRefresh checks the ledger first and the signature second. A
// well-signed token without a live ledger row yields model.ErrTokenRevoked.
func (s *TokenService) VerifyRefresh(ctx context.Context, presented string) (model.RefreshToken, error) {
	row, err := s.ledger.GetByToken(ctx, presented)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.RefreshToken{}, model.ErrTokenRevoked
		}
		return model.RefreshToken{}, fmt.Errorf("lookup refresh: %w", err)
	}

	claims, err := s.codec.ParseRefresh(presented)
	if err != nil {
		return model.RefreshToken{}, err
	}

	if claims.UserID != row.UserID {
		return model.RefreshToken{}, model.ErrTokenMismatch
	}

	return row, nil
}

// Rotate replaces the user's ledger row in place, but only while presented
// is still the live value. The old token is unusable afterwards.
func (s *TokenService) Rotate(ctx context.Context, userID uuid.UUID, presented string) (string, error) {
	refresh, err := s.codec.IssueRefresh(userID)
	if err != nil {
		return "", fmt.Errorf("issue refresh: %w", err)
	}

	err = s.ledger.Rotate(ctx, userID, presented, refresh, s.now().Add(s.refreshTTL))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", model.ErrTokenRevoked
		}
		return "", fmt.Errorf("rotate refresh: %w", err)
	}

	return refresh, nil
}

// Revoke drops the access token from the allow-list, then soft-deletes the
// user's ledger row if it still holds refreshToken. It reports whether a
// ledger row was deleted. An empty refreshToken skips the ledger step.
func (s *TokenService) Revoke(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string) (bool, error) {
	if err := s.revocation.Revoke(ctx, accessToken); err != nil {
		return false, err
	}

	if refreshToken == "" {
		return false, nil
	}

	err := s.ledger.SoftDeleteByToken(ctx, userID, refreshToken)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, model.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("delete refresh: %w", err)
	}
}

// PurgeExpired hard-deletes ledger rows whose expiry has passed.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.ledger.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge refresh: %w", err)
	}
	if n > 0 {
		s.logger.Info("Token service: purged expired refresh tokens", "count", n)
	}
	return n, nil
}
