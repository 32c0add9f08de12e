package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/api/middleware"
	"github.com/farefuse/farefuse/internal/api/models"
	"github.com/farefuse/farefuse/internal/api/response"
	"github.com/farefuse/farefuse/internal/auth"
)

const (
	msgAuthReady    = "Authentication system ready for deployment"
	msgAuthCheck    = "Authentication system ready for extension"
	msgLoggedOut    = "Logged out successfully"
	msgAuthFailed   = "Failed to issue session"
	statusSucceeded = "success"
)

// AuthHandler handles the placeholder authentication endpoints. There is
// no user store: register is a no-op and login hands out a guest token
// when signing is configured.
type AuthHandler struct {
	authService *auth.Service
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. A nil service disables tokens.
func NewAuthHandler(authService *auth.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.AuthResult{
		Status:      statusSucceeded,
		Message:     msgAuthReady,
		Placeholder: true,
	})
}

// Login handles POST /api/auth/login. Credentials in the body are ignored.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	result := models.AuthResult{
		Status:      statusSucceeded,
		Message:     msgAuthReady,
		Placeholder: true,
	}

	if h.authService.Enabled() {
		session, err := h.authService.Login(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("guest login failed")
			response.InternalError(w, r, msgAuthFailed)
			return
		}
		result.AccessToken = session.AccessToken
		result.TokenType = session.TokenType
		result.ExpiresIn = session.ExpiresIn
	}

	response.JSON(w, r, http.StatusOK, result)
}

// Logout handles POST /api/auth/logout. Guest tokens are stateless, so
// there is nothing to revoke.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.AuthResult{
		Status:  statusSucceeded,
		Message: msgLoggedOut,
	})
}

// Check handles GET /api/auth/check. It relies on the Session middleware
// having attached a valid guest session.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status, ok := middleware.GetSession(r.Context())
	if !ok || !status.Authenticated {
		response.JSON(w, r, http.StatusOK, models.AuthCheck{
			Authenticated: false,
			Message:       msgAuthCheck,
		})
		return
	}

	check := models.AuthCheck{Authenticated: true, Subject: status.Subject}
	if !status.ExpiresAt.IsZero() {
		expiresAt := status.ExpiresAt.UTC()
		check.ExpiresAt = &expiresAt
	}
	response.JSON(w, r, http.StatusOK, check)
}
