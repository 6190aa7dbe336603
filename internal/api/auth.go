package api

import (
	"net/http"

	"github.com/dennisdiepolder/callscope/internal/auth"
	"github.com/dennisdiepolder/callscope/internal/identity"
	"github.com/rs/zerolog"
)

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetRequest struct {
	Token    string `json:"token" validate:"required,uuid"`
	Password string `json:"password" validate:"required,max=72"`
}

// StatusResponse acknowledges a request that returns no document
type StatusResponse struct {
	Status string `json:"status"`
}

// AuthHandler serves the built-in account endpoints
type AuthHandler struct {
	provider identity.Provider
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(provider identity.Provider, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		logger:   logger.With().Str("component", "auth_api").Logger(),
	}
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in identity.SignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.provider.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Verify handles POST /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.provider.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "verified"})
}

// ResendVerification handles POST /api/auth/resend-verification. Like
// ForgotPassword it does not reveal whether the address is registered.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.provider.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "accepted"})
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is the
// same whether or not the address belongs to an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.provider.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "accepted"})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.provider.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "password updated"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: auth.ErrMissingToken.Error()})
		return
	}
	writeJSON(w, http.StatusOK, user)
}
