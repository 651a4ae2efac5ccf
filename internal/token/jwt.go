package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/model"
)

// Leeway tolerates small clock skew on nbf/exp checks.
const Leeway = 5 * time.Second

const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// accessClaims is the wire shape {id, role, iat, nbf, exp, jti}.
// Role is a pointer so refresh tokens, which carry no role, can be told apart.
// jti keeps two tokens minted within the same second distinct.
type accessClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"id"`
	Role   *bool     `json:"role,omitempty"`
}

// JWT implements TokenCodec backed by symmetric HMAC (HS256 only).
type JWT struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures JWT.
type Option func(*JWT)

// WithTTL overrides the access and refresh token lifetimes.
func WithTTL(access, refresh time.Duration) Option {
	return func(j *JWT) {
		if access > 0 {
			j.accessTTL = access
		}
		if refresh > 0 {
			j.refreshTTL = refresh
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		if now != nil {
			j.now = now
		}
	}
}

// NewJWT creates a new JWT codec with the provided secret key.
func NewJWT(secretKey string, opts ...Option) *JWT {
	j := &JWT{
		secretKey:  []byte(secretKey),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ model.TokenCodec = (*JWT)(nil)

// AccessTTL returns the configured access token lifetime.
func (j *JWT) AccessTTL() time.Duration { return j.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (j *JWT) RefreshTTL() time.Duration { return j.refreshTTL }

// IssueAccess creates a short-lived access token.
func (j *JWT) IssueAccess(userID uuid.UUID, elevated bool) (string, error) {
	role := elevated
	tokenString, err := j.sign(userID, &role, j.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// IssueRefresh creates a long-lived refresh token.
func (j *JWT) IssueRefresh(userID uuid.UUID) (string, error) {
	tokenString, err := j.sign(userID, nil, j.refreshTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return tokenString, nil
}

// ParseAccess verifies an access token and returns its claims.
func (j *JWT) ParseAccess(tokenString string) (model.AccessClaims, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return model.AccessClaims{}, err
	}
	if claims.Role == nil {
		return model.AccessClaims{}, fmt.Errorf("%w: not an access token", model.ErrTokenMalformed)
	}
	return model.AccessClaims{
		UserID:    claims.UserID,
		Elevated:  *claims.Role,
		IssuedAt:  timeOf(claims.IssuedAt),
		NotBefore: timeOf(claims.NotBefore),
		ExpiresAt: timeOf(claims.ExpiresAt),
	}, nil
}

// ParseRefresh verifies a refresh token and returns its claims.
func (j *JWT) ParseRefresh(tokenString string) (model.RefreshClaims, error) {
	claims, err := j.parse(tokenString)
	if err != nil {
		return model.RefreshClaims{}, err
	}
	if claims.Role != nil {
		return model.RefreshClaims{}, fmt.Errorf("%w: not a refresh token", model.ErrTokenMalformed)
	}
	return model.RefreshClaims{
		UserID:    claims.UserID,
		IssuedAt:  timeOf(claims.IssuedAt),
		NotBefore: timeOf(claims.NotBefore),
		ExpiresAt: timeOf(claims.ExpiresAt),
	}, nil
}

func (j *JWT) sign(userID uuid.UUID, role *bool, ttl time.Duration) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Role:   role,
	})
	return token.SignedString(j.secretKey)
}

func (j *JWT) parse(tokenString string) (*accessClaims, error) {
	claims := &accessClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(Leeway),
		jwt.WithTimeFunc(j.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", model.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrTokenMalformed, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token is invalid", model.ErrTokenMalformed)
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing subject", model.ErrTokenMalformed)
	}
	return claims, nil
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
