package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/taskhub-server/internal/apierror"
	servermocks "github.com/dtroode/taskhub-server/internal/mocks"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/testutil"
)

type authMocks struct {
	users  *servermocks.UserStore
	tx     *servermocks.Transactor
	hasher *servermocks.PasswordHasher
	codec  *servermocks.TokenCodec
	ledger *servermocks.RefreshTokenStore
	cache  *servermocks.Cache
	mailer *servermocks.Mailer
}

func newMockedAuth(t *testing.T) (*Auth, authMocks) {
	m := authMocks{
		users:  servermocks.NewUserStore(t),
		tx:     servermocks.NewTransactor(t),
		hasher: servermocks.NewPasswordHasher(t),
		codec:  servermocks.NewTokenCodec(t),
		ledger: servermocks.NewRefreshTokenStore(t),
		cache:  servermocks.NewCache(t),
		mailer: servermocks.NewMailer(t),
	}
	log := testutil.MakeNoopLogger()
	tokens := NewTokenService(m.codec, m.ledger, NewRevocation(m.cache, 30*time.Minute), 720*time.Hour, log)
	a := NewAuth(m.users, m.tx, m.hasher, tokens, m.cache, m.mailer, 5*time.Minute, nil, log)
	return a, m
}

func requireAPIError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	apiErr, ok := apierror.As(err)
	require.True(t, ok, "expected *APIError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	if msg != "" {
		assert.Equal(t, msg, apiErr.Message)
	}
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("new user", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.users.On("GetByEmail", ctx, "a@x.com").Return(model.User{}, model.ErrNotFound).Once()
		m.hasher.On("Hash", "Secret123").Return("hash", nil).Once()
		m.users.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
			return u.Email == "a@x.com" && u.PasswordHash == "hash" && u.Username == "a" && u.ID != uuid.Nil
		})).Return(func(_ context.Context, u model.User) model.User { return u }, nil).Once()

		p, err := a.Register(ctx, RegisterParams{Email: " A@x.com ", Password: "Secret123"})
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", p.Email)
	})

	t.Run("email taken", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.users.On("GetByEmail", ctx, "a@x.com").Return(model.User{ID: uuid.New()}, nil).Once()

		_, err := a.Register(ctx, RegisterParams{Email: "a@x.com", Password: "Secret123"})
		requireAPIError(t, err, http.StatusConflict, "")
	})

	t.Run("unique index race", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.users.On("GetByEmail", ctx, "a@x.com").Return(model.User{}, model.ErrNotFound).Once()
		m.hasher.On("Hash", "Secret123").Return("hash", nil).Once()
		m.users.On("Create", ctx, mock.Anything).Return(model.User{}, model.ErrEmailTaken).Once()

		_, err := a.Register(ctx, RegisterParams{Email: "a@x.com", Password: "Secret123"})
		requireAPIError(t, err, http.StatusConflict, "")
	})
}

func TestAuth_Login_Failures(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), Email: "a@x.com", PasswordHash: "hash"}

	tests := []struct {
		name       string
		setup      func(authMocks)
		wantStatus int
		wantMsg    string
	}{
		{
			name: "unknown user",
			setup: func(m authMocks) {
				m.users.On("GetByEmail", ctx, "a@x.com").Return(model.User{}, model.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
			wantMsg:    "user not found",
		},
		{
			name: "wrong password",
			setup: func(m authMocks) {
				m.users.On("GetByEmail", ctx, "a@x.com").Return(user, nil).Once()
				m.hasher.On("Compare", "hash", "bad").Return(model.ErrPasswordMismatch).Once()
			},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    apierror.MsgInvalidCredentials,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, m := newMockedAuth(t)
			tt.setup(m)

			_, err := a.Login(ctx, "a@x.com", "bad")
			requireAPIError(t, err, tt.wantStatus, tt.wantMsg)
		})
	}
}

func TestAuth_Login_StoreError(t *testing.T) {
	ctx := context.Background()
	a, m := newMockedAuth(t)
	m.users.On("GetByEmail", ctx, "a@x.com").Return(model.User{}, assert.AnError).Once()

	_, err := a.Login(ctx, "a@x.com", "x")
	require.ErrorIs(t, err, assert.AnError)
	_, isAPI := apierror.As(err)
	assert.False(t, isAPI)
}

func TestAuth_Login_Success(t *testing.T) {
	ctx := context.Background()
	a, m := newMockedAuth(t)
	user := model.User{ID: uuid.New(), Email: "a@x.com", PasswordHash: "hash", IsStaff: true}

	m.users.On("GetByEmail", ctx, "a@x.com").Return(user, nil).Once()
	m.hasher.On("Compare", "hash", "Secret123").Return(nil).Once()
	m.codec.On("IssueRefresh", user.ID).Return("refresh", nil).Once()
	m.ledger.On("Issue", ctx, user.ID, "refresh", mock.Anything).Return(model.RefreshToken{}, nil).Once()
	m.codec.On("IssueAccess", user.ID, true).Return("access", nil).Once()
	m.cache.On("Set", ctx, "access_token:access", "access", 30*time.Minute).Return(nil).Once()

	s, err := a.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "access", s.AccessToken)
	assert.Equal(t, "refresh", s.RefreshToken)
	assert.Equal(t, user.ID, s.User.ID)
}

func TestAuth_Refresh_Failures(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	row := model.RefreshToken{ID: uuid.New(), UserID: userID, Token: "r"}

	tests := []struct {
		name    string
		setup   func(authMocks)
		wantMsg string
	}{
		{
			name: "not in ledger",
			setup: func(m authMocks) {
				m.ledger.On("GetByToken", ctx, "r").Return(model.RefreshToken{}, model.ErrNotFound).Once()
			},
			wantMsg: apierror.MsgInvalidRefreshToken,
		},
		{
			name: "expired",
			setup: func(m authMocks) {
				m.ledger.On("GetByToken", ctx, "r").Return(row, nil).Once()
				m.codec.On("ParseRefresh", "r").Return(model.RefreshClaims{}, model.ErrTokenExpired).Once()
			},
			wantMsg: apierror.MsgRefreshTokenExpired,
		},
		{
			name: "bad signature",
			setup: func(m authMocks) {
				m.ledger.On("GetByToken", ctx, "r").Return(row, nil).Once()
				m.codec.On("ParseRefresh", "r").Return(model.RefreshClaims{}, model.ErrTokenMalformed).Once()
			},
			wantMsg: apierror.MsgInvalidRefreshToken,
		},
		{
			name: "owner deleted",
			setup: func(m authMocks) {
				m.ledger.On("GetByToken", ctx, "r").Return(row, nil).Once()
				m.codec.On("ParseRefresh", "r").Return(model.RefreshClaims{UserID: userID}, nil).Once()
				m.users.On("GetByID", ctx, userID).Return(model.User{}, model.ErrNotFound).Once()
			},
			wantMsg: apierror.MsgInvalidRefreshToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, m := newMockedAuth(t)
			tt.setup(m)

			_, err := a.Refresh(ctx, "r")
			requireAPIError(t, err, http.StatusUnauthorized, tt.wantMsg)
		})
	}
}

func TestAuth_Refresh_RederivesPrivilege(t *testing.T) {
	ctx := context.Background()
	a, m := newMockedAuth(t)
	userID := uuid.New()

	m.ledger.On("GetByToken", ctx, "r").Return(model.RefreshToken{ID: uuid.New(), UserID: userID}, nil).Once()
	m.codec.On("ParseRefresh", "r").Return(model.RefreshClaims{UserID: userID}, nil).Once()
	m.users.On("GetByID", ctx, userID).Return(model.User{ID: userID, IsStaff: true}, nil).Once()
	m.codec.On("IssueAccess", userID, true).Return("access2", nil).Once()
	m.cache.On("Set", ctx, "access_token:access2", "access2", 30*time.Minute).Return(nil).Once()

	got, err := a.Refresh(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "access2", got)
}

func TestAuth_ChangePassword_Failures(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: uuid.New(), PasswordHash: "hash"}
	identity := model.Identity{UserID: user.ID}

	t.Run("wrong current password", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		m.hasher.On("Compare", "hash", "bad").Return(model.ErrPasswordMismatch).Once()

		_, err := a.ChangePassword(ctx, identity, "bad", "new", "r")
		requireAPIError(t, err, http.StatusUnauthorized, apierror.MsgInvalidCredentials)
	})

	t.Run("refresh token of another user", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		m.hasher.On("Compare", "hash", "cur").Return(nil).Once()
		m.codec.On("ParseRefresh", "r").Return(model.RefreshClaims{UserID: uuid.New()}, nil).Once()

		_, err := a.ChangePassword(ctx, identity, "cur", "new", "r")
		requireAPIError(t, err, http.StatusUnauthorized, apierror.MsgInvalidRefreshToken)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		m.hasher.On("Compare", "hash", "cur").Return(nil).Once()
		m.codec.On("ParseRefresh", "r").Return(model.RefreshClaims{}, model.ErrTokenExpired).Once()

		_, err := a.ChangePassword(ctx, identity, "cur", "new", "r")
		requireAPIError(t, err, http.StatusUnauthorized, apierror.MsgRefreshTokenExpired)
	})

	t.Run("password update fails inside transaction", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
		m.hasher.On("Compare", "hash", "cur").Return(nil).Once()
		m.codec.On("ParseRefresh", "r").Return(model.RefreshClaims{UserID: user.ID}, nil).Once()
		m.hasher.On("Hash", "new").Return("newhash", nil).Once()
		m.tx.On("WithTx", ctx, mock.Anything).Return(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}).Once()
		m.codec.On("IssueRefresh", user.ID).Return("r2", nil).Once()
		m.ledger.On("Rotate", ctx, user.ID, "r", "r2", mock.Anything).Return(nil).Once()
		m.users.On("UpdatePassword", ctx, user.ID, "newhash").Return(assert.AnError).Once()

		_, err := a.ChangePassword(ctx, identity, "cur", "new", "r")
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestAuth_ResetPassword_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("no secret", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.cache.On("Get", ctx, "reset_password:a@x.com").Return("", model.ErrCacheMiss).Once()

		_, err := a.ResetPassword(ctx, "a@x.com", "12345", "new")
		requireAPIError(t, err, http.StatusNotFound, "secret key not found")
	})

	t.Run("mismatch", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.cache.On("Get", ctx, "reset_password:a@x.com").Return("12345", nil).Once()

		_, err := a.ResetPassword(ctx, "a@x.com", "54321", "new")
		requireAPIError(t, err, http.StatusUnprocessableEntity, "")
	})

	t.Run("claimed by a concurrent reset", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.cache.On("Get", ctx, "reset_password:a@x.com").Return("12345", nil).Once()
		m.users.On("GetByEmail", ctx, "a@x.com").Return(model.User{ID: uuid.New(), Email: "a@x.com"}, nil).Once()
		m.cache.On("CompareAndDelete", ctx, "reset_password:a@x.com", "12345").Return(false, nil).Once()

		_, err := a.ResetPassword(ctx, "a@x.com", "12345", "new")
		requireAPIError(t, err, http.StatusNotFound, "secret key not found")
		m.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("claim error", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.cache.On("Get", ctx, "reset_password:a@x.com").Return("12345", nil).Once()
		m.users.On("GetByEmail", ctx, "a@x.com").Return(model.User{ID: uuid.New(), Email: "a@x.com"}, nil).Once()
		m.cache.On("CompareAndDelete", ctx, "reset_password:a@x.com", "12345").Return(false, assert.AnError).Once()

		_, err := a.ResetPassword(ctx, "a@x.com", "12345", "new")
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestAuth_ForgotPassword_UnknownUser(t *testing.T) {
	ctx := context.Background()
	a, m := newMockedAuth(t)
	m.users.On("GetByEmail", ctx, "a@x.com").Return(model.User{}, model.ErrNotFound).Once()

	err := a.ForgotPassword(ctx, "a@x.com")
	requireAPIError(t, err, http.StatusNotFound, "user not found")
}

func TestAuth_Logout_ForeignRefreshToken(t *testing.T) {
	ctx := context.Background()
	a, m := newMockedAuth(t)
	m.ledger.On("GetByToken", ctx, "r").Return(model.RefreshToken{ID: uuid.New(), UserID: uuid.New()}, nil).Once()

	err := a.Logout(ctx, model.Identity{UserID: uuid.New()}, "a", "r")
	requireAPIError(t, err, http.StatusUnauthorized, apierror.MsgInvalidRefreshToken)
}

func TestAuth_Logout_DeletesByTokenValue(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("row replaced after lookup", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.ledger.On("GetByToken", ctx, "r").Return(model.RefreshToken{ID: uuid.New(), UserID: userID, Token: "r"}, nil).Once()
		m.cache.On("Delete", ctx, "access_token:a").Return(nil).Once()
		m.ledger.On("SoftDeleteByToken", ctx, userID, "r").Return(model.ErrNotFound).Once()

		require.NoError(t, a.Logout(ctx, model.Identity{UserID: userID}, "a", "r"))
		m.ledger.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("ledger failure", func(t *testing.T) {
		a, m := newMockedAuth(t)
		m.ledger.On("GetByToken", ctx, "r").Return(model.RefreshToken{ID: uuid.New(), UserID: userID, Token: "r"}, nil).Once()
		m.cache.On("Delete", ctx, "access_token:a").Return(nil).Once()
		m.ledger.On("SoftDeleteByToken", ctx, userID, "r").Return(assert.AnError).Once()

		err := a.Logout(ctx, model.Identity{UserID: userID}, "a", "r")
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestGenerateResetSecret(t *testing.T) {
	for i := 0; i < 200; i++ {
		s, err := generateResetSecret()
		require.NoError(t, err)
		require.Len(t, s, 5)
		assert.NotEqual(t, byte('0'), s[0])
	}
}
