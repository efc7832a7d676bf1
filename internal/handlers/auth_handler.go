package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pickline/backend/internal/middleware"
	"github.com/pickline/backend/internal/services"
)

type AuthHandler struct {
	service *services.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With(slog.String("component", "auth_handler")),
	}
}

// Login handles user authentication
// @Summary User login
// @Description Authenticate user with email and password, returns JWT token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Login credentials"
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.logFailure("login failed", err)
		services.SendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Signup handles user registration
// @Summary Register new user
// @Description Create a new account and return a JWT token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body services.SignupRequest true "Signup details"
// @Success 201 {object} services.AuthResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.logFailure("signup failed", err)
		services.SendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Logout revokes the bearer token
// @Summary User logout
// @Description Blacklist the current token until it expires
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		h.logFailure("logout failed", err)
		services.SendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) logFailure(msg string, err error) {
	if services.IsInternal(err) {
		h.logger.Error(msg, slog.String("error", err.Error()))
		return
	}
	h.logger.Debug(msg, slog.String("error", err.Error()))
}
