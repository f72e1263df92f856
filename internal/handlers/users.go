package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"linkup/internal/middleware"
	"linkup/internal/models"
	"linkup/internal/store"
)

type UserHandler struct {
	Store  store.Store
	Logger *zap.SugaredLogger
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Store.GetUserByID(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.Logger.Errorw("profile fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  *string `json:"username"`
		Email     *string `json:"email"`
		FullName  *string `json:"fullName"`
		AvatarURL *string `json:"avatarUrl"`
		Bio       *string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	user, err := h.Store.GetUserByID(ctx, middleware.UserID(ctx))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.Logger.Errorw("profile fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	if req.Username != nil && strings.TrimSpace(*req.Username) != "" {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}

	if err := h.Store.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			writeError(w, http.StatusConflict, "Username or email already in use")
			return
		}
		h.Logger.Errorw("profile update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusOK, map[string][]models.Summary{"users": {}})
		return
	}

	users, err := h.Store.SearchUsers(r.Context(), query, middleware.UserID(r.Context()))
	if err != nil {
		h.Logger.Errorw("user search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to search users")
		return
	}
	if users == nil {
		users = []models.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.Summary{"users": users})
}

func (h *UserHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID int64 `json:"receiverId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ReceiverID == 0 {
		writeError(w, http.StatusBadRequest, "Receiver ID is required")
		return
	}

	ctx := r.Context()
	senderID := middleware.UserID(ctx)
	if senderID == req.ReceiverID {
		writeError(w, http.StatusBadRequest, "Cannot send request to yourself")
		return
	}

	if _, err := h.Store.GetUserByID(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.Logger.Errorw("receiver lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send request")
		return
	}

	// A crossed request from the target counts as mutual intent and is
	// completed as an accept instead of a second pending entry.
	reverse, err := h.Store.HasPendingRequest(ctx, senderID, req.ReceiverID)
	if err != nil {
		h.Logger.Errorw("pending lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send request")
		return
	}
	if reverse {
		if err := h.Store.AcceptConnectionRequest(ctx, senderID, req.ReceiverID); err != nil {
			h.Logger.Errorw("mutual accept failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to send request")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Request accepted"})
		return
	}

	if err := h.Store.AddConnectionRequest(ctx, req.ReceiverID, senderID); err != nil {
		switch {
		case errors.Is(err, store.ErrRequestPending):
			writeError(w, http.StatusConflict, "Request already sent")
		case errors.Is(err, store.ErrAlreadyConnected):
			writeError(w, http.StatusConflict, "Already connected")
		default:
			h.Logger.Errorw("send request failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to send request")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Request sent successfully"})
}

func (h *UserHandler) ReceivedRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.ListConnectionRequests(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.Logger.Errorw("request listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch requests")
		return
	}
	if requests == nil {
		requests = []models.ConnectionRequest{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.ConnectionRequest{"requests": requests})
}

func (h *UserHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	senderID, ok := h.decodeSenderID(w, r)
	if !ok {
		return
	}
	if err := h.Store.AcceptConnectionRequest(r.Context(), middleware.UserID(r.Context()), senderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Request not found")
			return
		}
		h.Logger.Errorw("accept request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to accept request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Request accepted"})
}

func (h *UserHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	senderID, ok := h.decodeSenderID(w, r)
	if !ok {
		return
	}
	if err := h.Store.RejectConnectionRequest(r.Context(), middleware.UserID(r.Context()), senderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Request not found")
			return
		}
		h.Logger.Errorw("reject request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reject request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Request rejected"})
}

func (h *UserHandler) decodeSenderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req struct {
		SenderID int64 `json:"senderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	if req.SenderID == 0 {
		writeError(w, http.StatusBadRequest, "Sender ID is required")
		return 0, false
	}
	return req.SenderID, true
}

func (h *UserHandler) Connections(w http.ResponseWriter, r *http.Request) {
	connections, err := h.Store.ListConnections(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.Logger.Errorw("connection listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch connections")
		return
	}
	if connections == nil {
		connections = []models.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.Summary{"connections": connections})
}
