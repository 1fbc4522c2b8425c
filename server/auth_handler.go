package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"duetfm/core/session"
	"duetfm/logger"
	"duetfm/repository"
)

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterHandler handles sign-up requests.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := ValidateSignUp(req.Email, req.Password, req.DisplayName); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"fieldErrors": errs})
		return
	}

	user, token, err := h.sessions.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] email already registered", logger.String("email", req.Email))
			writeError(w, http.StatusConflict, "That email is already registered")
			return
		}
		logger.Error("[Register] sign-up failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	logger.Info("[Register] account created", logger.Int64("userId", user.ID))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// LoginHandler handles sign-in requests.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := ValidateSignIn(req.Email, req.Password); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"fieldErrors": errs})
		return
	}

	user, token, err := h.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			logger.Warn("[Login] invalid credentials", logger.String("email", req.Email))
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		logger.Error("[Login] sign-in failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("[Login] signed in", logger.Int64("userId", user.ID))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// LogoutHandler clears the caller's activity state.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.sessions.SignOut(r.Context(), userID); err != nil {
		logger.Warn("[Logout] failed to clear activity", logger.ErrorField(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler returns the resolved identity: the caller's profile and the
// partner, if one exists.
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	identity, err := h.sessions.Resolve(r.Context(), userID)
	if err != nil {
		logger.Error("[Me] identity resolution failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to resolve identity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    identity.User,
		"profile": identity.Profile,
		"partner": identity.Partner,
	})
}

// AuthMiddleware validates the bearer token and enforces the idle-timeout
// policy before any authenticated data loads.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := h.sessions.ParseToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		if err := h.sessions.Validate(r.Context(), claims.UserID); err != nil {
			if errors.Is(err, session.ErrSessionExpired) {
				writeError(w, http.StatusUnauthorized, "Session expired, please sign in again")
				return
			}
			logger.Error("session validation failed", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
