package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/dtroode/taskhub-server/internal/apierror"
	"github.com/dtroode/taskhub-server/internal/api/http/handler"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
)

// LivenessChecker reports whether an access token is still allow-listed.
type LivenessChecker interface {
	IsLive(ctx context.Context, token string) (bool, error)
}

// Authenticate is the auth gate in front of every protected route. It
// only reads: header, then allow-list, then signature, then identity.
type Authenticate struct {
	liveness       LivenessChecker
	codec          model.TokenCodec
	contextManager model.ContextManager
	metrics        *metrics.Metrics
	logger         *logger.Logger
}

func NewAuthenticate(
	liveness LivenessChecker,
	codec model.TokenCodec,
	contextManager model.ContextManager,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Authenticate {
	return &Authenticate{
		liveness:       liveness,
		codec:          codec,
		contextManager: contextManager,
		metrics:        metrics,
		logger:         logger,
	}
}

// Handle wraps next with the gate.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, reason, err := m.authenticate(r)
		if err != nil {
			m.metrics.GateRejection(reason)
			handler.WriteError(w, m.logger, err)
			return
		}

		ctx := m.contextManager.SetIdentityToContext(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Authenticate) authenticate(r *http.Request) (model.Identity, string, error) {
	token, ok := handler.BearerToken(r)
	if !ok {
		return model.Identity{}, metrics.RejectMissingHeader, apierror.NewErrUnauthorized(apierror.MsgMissingAuthorization)
	}

	live, err := m.liveness.IsLive(r.Context(), token)
	if err != nil {
		m.logger.Error("Auth gate: failed to check token liveness", "error", err.Error())
		return model.Identity{}, metrics.RejectCacheError, apierror.NewErrInternalServerError(err)
	}
	if !live {
		return model.Identity{}, metrics.RejectNotLive, apierror.NewErrUnauthorized(apierror.MsgInvalidToken)
	}

	claims, err := m.codec.ParseAccess(token)
	if err != nil {
		if errors.Is(err, model.ErrTokenExpired) {
			return model.Identity{}, metrics.RejectExpired, apierror.NewErrUnauthorized(apierror.MsgTokenExpired)
		}
		return model.Identity{}, metrics.RejectInvalid, apierror.NewErrUnauthorized(apierror.MsgInvalidToken)
	}

	return model.Identity{UserID: claims.UserID, Elevated: claims.Elevated}, "", nil
}
