package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dtroode/taskhub-server/internal/apierror"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/service"
)

// AuthService defines the session use cases served over HTTP.
type AuthService interface {
	Register(ctx context.Context, params service.RegisterParams) (model.Profile, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ChangePassword(ctx context.Context, identity model.Identity, currentPassword, newPassword, refreshToken string) (service.PasswordChanged, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, secret, newPassword string) (model.Profile, error)
	Logout(ctx context.Context, identity model.Identity, accessToken, refreshToken string) error
	Profile(ctx context.Context, identity model.Identity) (model.Profile, error)
}

// CookieConfig describes the refresh token cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Username  string `json:"username" validate:"omitempty,max=150"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
	RefreshToken    string `json:"refresh_token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	SecretKey   string `json:"secret_key" validate:"required,len=5,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	User model.Profile `json:"user"`
}

type loginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         model.Profile `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

type changePasswordResponse struct {
	User         model.Profile `json:"user"`
	RefreshToken string        `json:"refresh_token"`
}

type forgotPasswordResponse struct {
	Email string `json:"email"`
}

// Auth serves the session endpoints.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	cookie         CookieConfig
	logger         *logger.Logger
}

func NewAuth(authService AuthService, contextManager model.ContextManager, cookie CookieConfig, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		cookie:         cookie,
		logger:         logger,
	}
}

// Register handles POST /register.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req, false); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	profile, err := h.authService.Register(r.Context(), service.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, "user registered", userResponse{User: profile})
}

// Login handles POST /login.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req, false); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	h.setRefreshCookie(w, session.RefreshToken)
	WriteJSON(w, http.StatusOK, "login successful", loginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         session.User,
	})
}

// Refresh handles POST /refresh_token. The refresh token comes from the
// body or, failing that, from the refresh cookie.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req, true); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	refreshToken := h.refreshToken(r, req.RefreshToken)
	if refreshToken == "" {
		WriteError(w, h.logger, apierror.NewErrValidation(map[string]string{"refresh_token": "is required"}))
		return
	}

	access, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, "token refreshed", refreshResponse{AccessToken: access})
}

// Me handles GET /me.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, apierror.NewErrUnauthorized(apierror.MsgMissingAuthorization))
		return
	}

	profile, err := h.authService.Profile(r.Context(), identity)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, "profile", userResponse{User: profile})
}

// ChangePassword handles PATCH /password.
func (h *Auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, apierror.NewErrUnauthorized(apierror.MsgMissingAuthorization))
		return
	}

	var req changePasswordRequest
	if err := decode(w, r, &req, false); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	changed, err := h.authService.ChangePassword(r.Context(), identity, req.CurrentPassword, req.NewPassword, req.RefreshToken)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	h.setRefreshCookie(w, changed.RefreshToken)
	WriteJSON(w, http.StatusOK, "password changed", changePasswordResponse{
		User:         changed.User,
		RefreshToken: changed.RefreshToken,
	})
}

// ForgotPassword handles POST /forgot_password.
func (h *Auth) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decode(w, r, &req, false); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, "password reset code sent", forgotPasswordResponse{Email: req.Email})
}

// ResetPassword handles POST /reset_password.
func (h *Auth) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(w, r, &req, false); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	profile, err := h.authService.ResetPassword(r.Context(), req.Email, req.SecretKey, req.NewPassword)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, "password reset", userResponse{User: profile})
}

// Logout handles POST /logout.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, apierror.NewErrUnauthorized(apierror.MsgMissingAuthorization))
		return
	}
	accessToken, ok := BearerToken(r)
	if !ok {
		WriteError(w, h.logger, apierror.NewErrUnauthorized(apierror.MsgMissingAuthorization))
		return
	}

	var req logoutRequest
	if err := decode(w, r, &req, true); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	refreshToken := h.refreshToken(r, req.RefreshToken)
	if refreshToken == "" {
		WriteError(w, h.logger, apierror.NewErrValidation(map[string]string{"refresh_token": "is required"}))
		return
	}

	if err := h.authService.Logout(r.Context(), identity, accessToken, refreshToken); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	h.expireRefreshCookie(w)
	WriteJSON(w, http.StatusOK, "logged out", nil)
}

func (h *Auth) refreshToken(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		return c.Value
	}
	return ""
}

func (h *Auth) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: h.cookie.SameSite,
	})
}

func (h *Auth) expireRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: h.cookie.SameSite,
	})
}
