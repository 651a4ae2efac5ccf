package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/model"
)

const refreshTokenColumns = `id, user_id, token, created_at, expires_at, deleted_at`

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

// RefreshTokenRepository keeps one ledger row per user, enforced by the
// unique user_id constraint.
type RefreshTokenRepository struct {
	db *Connection
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Issue creates the user's ledger row or replaces it in place.
func (r *RefreshTokenRepository) Issue(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (model.RefreshToken, error) {
	const query = `
        INSERT INTO refresh_tokens (id, user_id, token, created_at, expires_at)
        VALUES ($1, $2, $3, NOW(), $4)
        ON CONFLICT (user_id) DO UPDATE
        SET token = EXCLUDED.token, created_at = NOW(), expires_at = EXCLUDED.expires_at, deleted_at = NULL
        RETURNING ` + refreshTokenColumns

	var rt model.RefreshToken
	err := r.db.executor(ctx).QueryRowContext(ctx, query, uuid.New(), userID, token, expiresAt).Scan(
		&rt.ID, &rt.UserID, &rt.Token, &rt.CreatedAt, &rt.ExpiresAt, &rt.DeletedAt,
	)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return rt, nil
}

func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	const query = `
        SELECT ` + refreshTokenColumns + `
        FROM refresh_tokens WHERE token = $1 AND deleted_at IS NULL
    `
	var rt model.RefreshToken
	err := r.db.executor(ctx).QueryRowContext(ctx, query, token).Scan(
		&rt.ID, &rt.UserID, &rt.Token, &rt.CreatedAt, &rt.ExpiresAt, &rt.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return rt, nil
}

// Rotate swaps oldToken for newToken only if oldToken is still the live value.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, userID uuid.UUID, oldToken, newToken string, expiresAt time.Time) error {
	const query = `
        UPDATE refresh_tokens SET token = $3, expires_at = $4, created_at = NOW()
        WHERE user_id = $1 AND token = $2 AND deleted_at IS NULL
    `
	res, err := r.db.executor(ctx).ExecContext(ctx, query, userID, oldToken, newToken, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return expectAffected(res)
}

func (r *RefreshTokenRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE refresh_tokens SET deleted_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL
    `
	res, err := r.db.executor(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete refresh token: %w", err)
	}
	return expectAffected(res)
}

// SoftDeleteByToken is SoftDelete keyed on the live value, so a row that was
// re-issued or rotated in the meantime is left alone.
func (r *RefreshTokenRepository) SoftDeleteByToken(ctx context.Context, userID uuid.UUID, token string) error {
	const query = `
        UPDATE refresh_tokens SET deleted_at = NOW()
        WHERE user_id = $1 AND token = $2 AND deleted_at IS NULL
    `
	res, err := r.db.executor(ctx).ExecContext(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("failed to soft delete refresh token: %w", err)
	}
	return expectAffected(res)
}

func (r *RefreshTokenRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM refresh_tokens WHERE id = $1`
	res, err := r.db.executor(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return expectAffected(res)
}

// DeleteExpired removes rows whose expiry is before the given instant.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1`
	res, err := r.db.executor(ctx).ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
