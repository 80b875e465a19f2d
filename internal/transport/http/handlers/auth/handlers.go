package authhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"quickshift/internal/domain/admins"
	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/employers"
	"quickshift/internal/domain/notifications"
	"quickshift/internal/domain/users"
	"quickshift/internal/transport/http/api"
	"quickshift/internal/transport/http/middleware"
	"quickshift/internal/transport/http/shared"
)

type Authenticator interface {
	Authenticate(ctx context.Context, role, email, password, mfaCode string) (auth.Credentials, error)
	ChangePassword(ctx context.Context, user auth.UserContext, current, next string) error
	RequestPasswordReset(ctx context.Context, role, email string) (auth.PasswordReset, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	SetupMFA(ctx context.Context, adminID, accountName string) (string, string, error)
	EnableMFA(ctx context.Context, adminID, code string) error
	DisableMFA(ctx context.Context, adminID, code string) error
}

type Tokens interface {
	Issue(ctx context.Context, subject auth.UserContext, meta auth.ClientMeta) (auth.TokenPair, error)
	Refresh(ctx context.Context, raw string, meta auth.ClientMeta) (auth.TokenPair, auth.UserContext, error)
	Revoke(ctx context.Context, raw string) error
	RevokeSession(ctx context.Context, sessionID string) error
}

type Users interface {
	Register(ctx context.Context, in users.RegisterInput) (users.User, error)
	Get(ctx context.Context, id string) (users.User, error)
}

type Employers interface {
	Register(ctx context.Context, in employers.RegisterInput) (employers.Employer, error)
	Get(ctx context.Context, id string) (employers.Employer, error)
}

type Admins interface {
	Get(ctx context.Context, id string) (admins.Admin, error)
}

type Mailer interface {
	SendEmail(ctx context.Context, to string, msg notifications.Email) error
}

type Handler struct {
	Auth        Authenticator
	Tokens      Tokens
	Users       Users
	Employers   Employers
	Admins      Admins
	Mail        Mailer
	FrontendURL string
}

func NewHandler(authSvc Authenticator, tokens Tokens, usersSvc Users, employersSvc Employers, adminsSvc Admins, mail Mailer, frontendURL string) *Handler {
	return &Handler{
		Auth:        authSvc,
		Tokens:      tokens,
		Users:       usersSvc,
		Employers:   employersSvc,
		Admins:      adminsSvc,
		Mail:        mail,
		FrontendURL: frontendURL,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/users/register", h.handleRegisterUser)
		r.Post("/employers/register", h.handleRegisterEmployer)
		r.Post("/users/login", h.handleLogin(auth.RoleUser))
		r.Post("/employers/login", h.handleLogin(auth.RoleEmployer))
		r.Post("/admins/login", h.handleLogin(auth.RoleAdmin))
		r.Post("/refresh", h.handleRefresh)
		r.Post("/logout", h.handleLogout)
		r.Post("/password/forgot", h.handleForgotPassword)
		r.Post("/password/reset", h.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/me", h.handleMe)
			r.Post("/password/change", h.handleChangePassword)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Post("/admins/mfa/setup", h.handleMFASetup)
			r.Post("/admins/mfa/enable", h.handleMFAEnable)
			r.Post("/admins/mfa/disable", h.handleMFADisable)
		})
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

type sessionResponse struct {
	auth.TokenPair
	Role    string `json:"role"`
	Profile any    `json:"profile"`
}

func (h *Handler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var payload users.RegisterInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Email("email", payload.Email)
	v.Required("password", payload.Password, "is required")
	v.Required("firstName", payload.FirstName, "is required")
	v.Required("lastName", payload.LastName, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	user, err := h.Users.Register(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.sendWelcome(r.Context(), user.Email, user.FirstName)
	h.startSession(w, r, auth.UserContext{SubjectID: user.ID, Role: auth.RoleUser}, user, http.StatusCreated)
}

func (h *Handler) handleRegisterEmployer(w http.ResponseWriter, r *http.Request) {
	var payload employers.RegisterInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Email("email", payload.Email)
	v.Required("password", payload.Password, "is required")
	v.Required("companyName", payload.CompanyName, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employer, err := h.Employers.Register(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := employer.ContactName
	if name == "" {
		name = employer.CompanyName
	}
	h.sendWelcome(r.Context(), employer.Email, name)
	h.startSession(w, r, auth.UserContext{SubjectID: employer.ID, Role: auth.RoleEmployer}, employer, http.StatusCreated)
}

func (h *Handler) handleLogin(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload loginRequest
		if err := shared.DecodeJSON(r, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
		if role != auth.RoleAdmin && payload.MFACode != "" {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "mfa is only available for admins", middleware.GetRequestID(r.Context()))
			return
		}

		creds, err := h.Auth.Authenticate(r.Context(), role, payload.Email, payload.Password, payload.MFACode)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		subject := auth.UserContext{SubjectID: creds.ID, Role: creds.Role, AdminRole: creds.AdminRole}
		profile, err := h.profile(r.Context(), subject)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.startSession(w, r, subject, profile, http.StatusOK)
	}
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, subject auth.UserContext, profile any, status int) {
	pair, err := h.Tokens.Issue(r.Context(), subject, clientMeta(r))
	if err != nil {
		slog.Error("issue tokens failed", "subjectId", subject.SubjectID, "role", subject.Role, "err", err)
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}
	api.WriteJSON(w, status, api.Envelope{
		Success:   true,
		Data:      sessionResponse{TokenPair: pair, Role: subject.Role, Profile: profile},
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if err := shared.DecodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.RefreshToken) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "refreshToken is required", middleware.GetRequestID(r.Context()))
		return
	}
	pair, subject, err := h.Tokens.Refresh(r.Context(), payload.RefreshToken, clientMeta(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, sessionResponse{TokenPair: pair, Role: subject.Role}, middleware.GetRequestID(r.Context()))
}

// handleLogout revokes the presented refresh token, or the access token's session when none is sent.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if err := shared.DecodeOptionalJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.RefreshToken != "" {
		if err := h.Tokens.Revoke(r.Context(), payload.RefreshToken); err != nil {
			slog.Warn("logout revoke failed", "err", err)
		}
	} else if user, ok := middleware.GetUser(r.Context()); ok && user.SessionID != "" {
		if err := h.Tokens.RevokeSession(r.Context(), user.SessionID); err != nil {
			slog.Warn("logout session revoke failed", "subjectId", user.SubjectID, "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

// handleForgotPassword answers the same way whether or not the account exists.
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload forgotRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	role := payload.Role
	if role == "" {
		role = auth.RoleUser
	}
	v := shared.NewValidator()
	v.Email("email", payload.Email)
	v.Enum("role", role, []string{auth.RoleUser, auth.RoleEmployer, auth.RoleAdmin}, "must be user, employer or admin")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	reset, err := h.Auth.RequestPasswordReset(r.Context(), role, payload.Email)
	if err != nil {
		slog.Error("password reset request failed", "role", role, "err", err)
	} else if reset.Token != "" {
		h.sendReset(r.Context(), payload.Email, reset)
	}
	api.Success(w, map[string]string{"status": "ok"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("token", payload.Token, "is required")
	v.Required("newPassword", payload.NewPassword, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload changePasswordRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), user, payload.CurrentPassword, payload.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "password_changed"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	profile, err := h.profile(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{
		"id":        user.SubjectID,
		"role":      user.Role,
		"adminRole": user.AdminRole,
		"profile":   profile,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	admin, err := h.Admins.Get(r.Context(), user.SubjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	secret, url, err := h.Auth.SetupMFA(r.Context(), admin.ID, admin.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"secret": secret, "otpauthUrl": url}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, h.Auth.EnableMFA, "mfa_enabled")
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, h.Auth.DisableMFA, "mfa_disabled")
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, string) error, status string) {
	user, _ := middleware.GetUser(r.Context())
	var payload mfaCodeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.Code) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "code is required", middleware.GetRequestID(r.Context()))
		return
	}
	if err := apply(r.Context(), user.SubjectID, strings.TrimSpace(payload.Code)); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) profile(ctx context.Context, user auth.UserContext) (any, error) {
	switch user.Role {
	case auth.RoleUser:
		return h.Users.Get(ctx, user.SubjectID)
	case auth.RoleEmployer:
		return h.Employers.Get(ctx, user.SubjectID)
	case auth.RoleAdmin:
		return h.Admins.Get(ctx, user.SubjectID)
	}
	return nil, auth.ErrUnknownRole
}

func (h *Handler) sendWelcome(ctx context.Context, email, name string) {
	if h.Mail == nil {
		return
	}
	if err := h.Mail.SendEmail(ctx, email, notifications.WelcomeEmail(name, h.FrontendURL)); err != nil {
		slog.Warn("welcome email failed", "err", err)
	}
}

func (h *Handler) sendReset(ctx context.Context, email string, reset auth.PasswordReset) {
	if h.Mail == nil {
		return
	}
	name := ""
	if profile, err := h.profile(ctx, auth.UserContext{SubjectID: reset.SubjectID, Role: reset.Role}); err == nil {
		name = displayName(profile)
	}
	msg := notifications.PasswordResetEmail(name, h.FrontendURL, reset.Token, humanDuration(time.Until(reset.ExpiresAt)))
	if err := h.Mail.SendEmail(ctx, email, msg); err != nil {
		slog.Warn("password reset email failed", "subjectId", reset.SubjectID, "err", err)
	}
}

func displayName(profile any) string {
	switch p := profile.(type) {
	case users.User:
		return p.FirstName
	case employers.Employer:
		if p.ContactName != "" {
			return p.ContactName
		}
		return p.CompanyName
	case admins.Admin:
		return p.Name
	}
	return ""
}

func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d >= time.Hour && d%time.Hour == 0 {
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}

func clientMeta(r *http.Request) auth.ClientMeta {
	return auth.ClientMeta{UserAgent: r.UserAgent(), IP: shared.ClientIP(r)}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", err.Error(), requestID)
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", err.Error(), requestID)
	case errors.Is(err, auth.ErrMFANotConfigured):
		api.Fail(w, http.StatusConflict, "mfa_not_configured", err.Error(), requestID)
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "mfa_unavailable", err.Error(), requestID)
	case errors.Is(err, auth.ErrAccountInactive):
		api.Fail(w, http.StatusForbidden, "account_inactive", err.Error(), requestID)
	case errors.Is(err, auth.ErrWeakPassword):
		api.Fail(w, http.StatusBadRequest, "weak_password", err.Error(), requestID)
	case errors.Is(err, auth.ErrInvalidResetToken):
		api.Fail(w, http.StatusBadRequest, "invalid_token", err.Error(), requestID)
	case errors.Is(err, auth.ErrInvalidRefreshToken), errors.Is(err, auth.ErrRefreshTokenExpired), errors.Is(err, auth.ErrRefreshTokenReused):
		api.Fail(w, http.StatusUnauthorized, "invalid_refresh_token", err.Error(), requestID)
	case errors.Is(err, users.ErrEmailTaken), errors.Is(err, employers.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", requestID)
	case errors.Is(err, users.ErrInvalidInput), errors.Is(err, employers.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, users.ErrNotFound), errors.Is(err, employers.ErrNotFound), errors.Is(err, admins.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "account not found", requestID)
	default:
		slog.Error("auth request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
