package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/taskhub-server/internal/apierror"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
)

const (
	resetSecretKeyPrefix = "reset_password:"
	resetSecretDigits    = 5
	mailTimeout          = 30 * time.Second
)

// Session is the result of a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         model.Profile
}

// PasswordChanged is the result of a successful password change.
type PasswordChanged struct {
	User         model.Profile
	RefreshToken string
}

// RegisterParams carries the fields of a new account.
type RegisterParams struct {
	Email     string
	Password  string
	Username  string
	FirstName string
	LastName  string
}

// Auth orchestrates the session lifecycle.
type Auth struct {
	users    model.UserStore
	tx       model.Transactor
	hasher   model.PasswordHasher
	tokens   *TokenService
	cache    model.Cache
	mailer   model.Mailer
	resetTTL time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger

	secrets func() (string, error)
	mailWG  sync.WaitGroup
}

func NewAuth(
	users model.UserStore,
	tx model.Transactor,
	hasher model.PasswordHasher,
	tokens *TokenService,
	cache model.Cache,
	mailer model.Mailer,
	resetTTL time.Duration,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		users:    users,
		tx:       tx,
		hasher:   hasher,
		tokens:   tokens,
		cache:    cache,
		mailer:   mailer,
		resetTTL: resetTTL,
		metrics:  metrics,
		logger:   logger,
		secrets:  generateResetSecret,
	}
}

// Register creates a user with a hashed password.
func (a *Auth) Register(ctx context.Context, params RegisterParams) (model.Profile, error) {
	email := normalizeEmail(params.Email)

	_, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		a.logger.Info("Auth service: user already exists", "email", email)
		return model.Profile{}, apierror.NewErrEmailIsTaken(email)
	}
	if !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := a.hasher.Hash(params.Password)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	username := params.Username
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	user, err := a.users.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return model.Profile{}, apierror.NewErrEmailIsTaken(email)
		}
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered", "user_id", user.ID)
	return user.PublicProfile(), nil
}

// Login verifies credentials and opens a new session.
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	a.logger.Debug("Auth service: login attempt", "email", email)

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			a.metrics.LoginAttempt(metrics.LoginUnknownUser)
			return Session{}, apierror.NewErrNotFound("user")
		}
		a.metrics.LoginAttempt(metrics.LoginInternalError)
		return Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := a.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, model.ErrPasswordMismatch) {
			a.metrics.LoginAttempt(metrics.LoginBadPassword)
			a.logger.Info("Auth service: wrong password", "user_id", user.ID)
			return Session{}, apierror.NewErrUnauthorized(apierror.MsgInvalidCredentials)
		}
		a.metrics.LoginAttempt(metrics.LoginInternalError)
		return Session{}, fmt.Errorf("failed to verify password: %w", err)
	}

	access, refresh, err := a.tokens.Issue(ctx, user.ID, user.IsStaff)
	if err != nil {
		a.metrics.LoginAttempt(metrics.LoginInternalError)
		a.logger.Error("Auth service: failed to issue tokens",
			"user_id", user.ID,
			"error", err.Error())
		return Session{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.metrics.LoginAttempt(metrics.LoginSuccess)
	a.logger.Info("Auth service: login successful", "user_id", user.ID)

	return Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.PublicProfile(),
	}, nil
}

// Refresh issues a new access token for a live refresh token. The
// privilege flag is read from the current user record. The refresh token
// itself is not rotated.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (string, error) {
	row, err := a.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return "", refreshError(err)
	}

	user, err := a.users.GetByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", apierror.NewErrUnauthorized(apierror.MsgInvalidRefreshToken)
		}
		return "", fmt.Errorf("failed to get user by id: %w", err)
	}

	access, err := a.tokens.IssueAccess(ctx, user.ID, user.IsStaff)
	if err != nil {
		a.logger.Error("Auth service: failed to issue access token",
			"user_id", user.ID,
			"error", err.Error())
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}

	a.logger.Debug("Auth service: access token refreshed", "user_id", user.ID)
	return access, nil
}

// ChangePassword verifies the current password and the presented refresh
// token, then rotates the ledger row and stores the new hash in one
// transaction.
func (a *Auth) ChangePassword(ctx context.Context, identity model.Identity, currentPassword, newPassword, refreshToken string) (PasswordChanged, error) {
	user, err := a.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return PasswordChanged{}, apierror.NewErrNotFound("user")
		}
		return PasswordChanged{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	if err := a.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		if errors.Is(err, model.ErrPasswordMismatch) {
			return PasswordChanged{}, apierror.NewErrUnauthorized(apierror.MsgInvalidCredentials)
		}
		return PasswordChanged{}, fmt.Errorf("failed to verify password: %w", err)
	}

	claims, err := a.tokens.codec.ParseRefresh(refreshToken)
	if err != nil {
		return PasswordChanged{}, refreshError(err)
	}
	if claims.UserID != user.ID {
		return PasswordChanged{}, refreshError(model.ErrTokenMismatch)
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return PasswordChanged{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var rotated string
	err = a.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rotated, err = a.tokens.Rotate(ctx, user.ID, refreshToken)
		if err != nil {
			return err
		}
		return a.users.UpdatePassword(ctx, user.ID, hash)
	})
	if err != nil {
		if errors.Is(err, model.ErrTokenRevoked) {
			return PasswordChanged{}, refreshError(err)
		}
		a.logger.Error("Auth service: failed to change password",
			"user_id", user.ID,
			"error", err.Error())
		return PasswordChanged{}, fmt.Errorf("failed to change password: %w", err)
	}

	a.logger.Info("Auth service: password changed", "user_id", user.ID)

	return PasswordChanged{
		User:         user.PublicProfile(),
		RefreshToken: rotated,
	}, nil
}

// ForgotPassword stores a short-lived numeric secret for email and mails
// it in the background.
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if _, err := a.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierror.NewErrNotFound("user")
		}
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	secret, err := a.secrets()
	if err != nil {
		return fmt.Errorf("failed to generate reset secret: %w", err)
	}

	if err := a.cache.Set(ctx, resetSecretKey(email), secret, a.resetTTL); err != nil {
		return fmt.Errorf("failed to store reset secret: %w", err)
	}

	a.sendMail(ctx, email, "Reset your password",
		fmt.Sprintf("Your password reset code is %s. It expires in %s.", secret, a.resetTTL))

	a.logger.Info("Auth service: reset secret issued", "email", email)
	return nil
}

// ResetPassword replaces the password when secret matches the stored one.
// The secret is claimed with a compare-and-delete before the password is
// written, so of two concurrent resets only one gets past the claim.
func (a *Auth) ResetPassword(ctx context.Context, email, secret, newPassword string) (model.Profile, error) {
	email = normalizeEmail(email)
	key := resetSecretKey(email)

	stored, err := a.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrCacheMiss) {
			return model.Profile{}, apierror.NewErrNotFound("secret key")
		}
		return model.Profile{}, fmt.Errorf("failed to get reset secret: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		a.logger.Info("Auth service: reset secret mismatch", "email", email)
		return model.Profile{}, apierror.NewErrUnprocessableEntity("secret key does not match")
	}

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, apierror.NewErrNotFound("user")
		}
		return model.Profile{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	claimed, err := a.cache.CompareAndDelete(ctx, key, stored)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to claim reset secret: %w", err)
	}
	if !claimed {
		a.logger.Info("Auth service: reset secret already used", "email", email)
		return model.Profile{}, apierror.NewErrNotFound("secret key")
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return model.Profile{}, fmt.Errorf("failed to update password: %w", err)
	}

	a.logger.Info("Auth service: password reset", "user_id", user.ID)
	return user.PublicProfile(), nil
}

// Logout revokes the access token and deletes the ledger row while it still
// holds the presented refresh token. The lookup only rejects tokens owned by
// another user; the delete itself is keyed on the token value.
func (a *Auth) Logout(ctx context.Context, identity model.Identity, accessToken, refreshToken string) error {
	if refreshToken != "" {
		row, err := a.tokens.ledger.GetByToken(ctx, refreshToken)
		switch {
		case err == nil:
			if row.UserID != identity.UserID {
				return apierror.NewErrUnauthorized(apierror.MsgInvalidRefreshToken)
			}
		case errors.Is(err, model.ErrNotFound):
		default:
			return fmt.Errorf("failed to get refresh token: %w", err)
		}
	}

	deleted, err := a.tokens.Revoke(ctx, identity.UserID, accessToken, refreshToken)
	if err != nil {
		a.logger.Error("Auth service: failed to revoke session",
			"user_id", identity.UserID,
			"error", err.Error())
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if refreshToken != "" && !deleted {
		a.logger.Debug("Auth service: refresh token already gone", "user_id", identity.UserID)
	}

	a.logger.Info("Auth service: logged out", "user_id", identity.UserID)
	return nil
}

// Profile returns the public projection of the authenticated user.
func (a *Auth) Profile(ctx context.Context, identity model.Identity) (model.Profile, error) {
	user, err := a.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Profile{}, apierror.NewErrNotFound("user")
		}
		return model.Profile{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user.PublicProfile(), nil
}

// Wait blocks until background mail deliveries finish.
func (a *Auth) Wait() {
	a.mailWG.Wait()
}

func (a *Auth) sendMail(ctx context.Context, to, subject, body string) {
	ctx = context.WithoutCancel(ctx)

	a.mailWG.Add(1)
	go func() {
		defer a.mailWG.Done()

		ctx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()

		if err := a.mailer.Send(ctx, to, subject, body); err != nil {
			a.logger.Error("Auth service: failed to send mail",
				"to", to,
				"error", err.Error())
		}
	}()
}

func refreshError(err error) error {
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		return apierror.NewErrUnauthorized(apierror.MsgRefreshTokenExpired)
	case errors.Is(err, model.ErrTokenRevoked),
		errors.Is(err, model.ErrTokenMismatch),
		errors.Is(err, model.ErrTokenMalformed):
		return apierror.NewErrUnauthorized(apierror.MsgInvalidRefreshToken)
	default:
		return fmt.Errorf("failed to verify refresh token: %w", err)
	}
}

func resetSecretKey(email string) string {
	return resetSecretKeyPrefix + email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateResetSecret returns a uniformly random 5-digit code without a leading zero.
func generateResetSecret() (string, error) {
	low := int64(1)
	for i := 1; i < resetSecretDigits; i++ {
		low *= 10
	}
	n, err := rand.Int(rand.Reader, big.NewInt(9*low))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+low), nil
}
