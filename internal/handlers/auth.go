package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"linkup/internal/auth"
	"linkup/internal/models"
	"linkup/internal/otp"
	"linkup/internal/store"
)

type AuthHandler struct {
	Store  store.Store
	Otp    *otp.Service
	Tokens *auth.Manager
	Logger *zap.SugaredLogger
}

type sessionResponse struct {
	Token string         `json:"token"`
	User  models.Summary `json:"user"`
}

func (h *AuthHandler) RequestOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	if err := h.Otp.Request(r.Context(), req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, otp.ErrAccountExists) {
			writeError(w, http.StatusConflict, "User already exists")
			return
		}
		h.Logger.Errorw("otp request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to request OTP")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent"})
}

func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Otp   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Otp == "" {
		writeError(w, http.StatusBadRequest, "Email and OTP are required")
		return
	}

	token, user, err := h.Otp.Verify(r.Context(), req.Email, req.Otp)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "OTP request not found")
		case errors.Is(err, otp.ErrExpired):
			writeError(w, http.StatusGone, "OTP expired")
		case errors.Is(err, otp.ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, "Too many attempts")
		case errors.Is(err, otp.ErrInvalidCode):
			writeError(w, http.StatusUnauthorized, "Invalid OTP")
		case errors.Is(err, otp.ErrAccountExists):
			writeError(w, http.StatusConflict, "User already exists")
		default:
			h.Logger.Errorw("otp verification failed", "error", err)
			writeError(w, http.StatusInternalServerError, "OTP verification failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user.Summary()})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	// The same response covers both unknown email and wrong password, so the
	// two cases are indistinguishable to the caller.
	user, err := h.Store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.Logger.Errorw("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.Tokens.Sign(user.ID)
	if err != nil {
		h.Logger.Errorw("token signing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user.Summary()})
}
