package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"linkup/internal/middleware"
	"linkup/internal/models"
	"linkup/internal/store"
)

type ChatHandler struct {
	Store  store.Store
	Logger *zap.SugaredLogger
}

func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Store.ListUserChats(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.Logger.Errorw("chat listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch chats")
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.Chat{"chats": chats})
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberIDs []int64 `json:"memberIds"`
		IsGroup   bool    `json:"isGroup"`
		Name      string  `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.MemberIDs) == 0 {
		writeError(w, http.StatusBadRequest, "memberIds must include at least one user")
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)

	// The creator is always a member; duplicates collapse.
	seen := map[int64]bool{userID: true}
	members := []int64{userID}
	for _, id := range req.MemberIDs {
		if id != 0 && !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	chatID, err := h.Store.CreateChat(ctx, strings.TrimSpace(req.Name), req.IsGroup, members)
	if err != nil {
		h.Logger.Errorw("chat creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create chat")
		return
	}

	chat, err := h.Store.GetChat(ctx, chatID)
	if err != nil {
		h.Logger.Errorw("chat fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create chat")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]*models.Chat{"chat": chat})
}

func (h *ChatHandler) PostGroupMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		writeError(w, http.StatusBadRequest, "Message body is required")
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)

	if _, err := h.Store.GetChat(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		h.Logger.Errorw("chat fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	member, err := h.Store.IsChatMember(ctx, chatID, userID)
	if err != nil {
		h.Logger.Errorw("membership check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}
	if !member {
		writeError(w, http.StatusForbidden, "Not a member of this chat")
		return
	}

	message, err := h.Store.CreateGroupMessage(ctx, chatID, userID, body)
	if err != nil {
		h.Logger.Errorw("message creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]*models.Message{"message": message})
}

func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)

	if _, err := h.Store.GetChat(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		h.Logger.Errorw("chat fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	member, err := h.Store.IsChatMember(ctx, chatID, userID)
	if err != nil {
		h.Logger.Errorw("membership check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}
	if !member {
		writeError(w, http.StatusForbidden, "Not a member of this chat")
		return
	}

	messages, err := h.Store.ListChatMessages(ctx, chatID)
	if err != nil {
		h.Logger.Errorw("message listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.Message{"messages": messages})
}

func (h *ChatHandler) GetDirectMessages(w http.ResponseWriter, r *http.Request) {
	otherID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)
	if userID == otherID {
		writeError(w, http.StatusBadRequest, "Cannot message yourself")
		return
	}

	messages, err := h.Store.ListDirectMessages(ctx, userID, otherID)
	if err != nil {
		h.Logger.Errorw("message listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.Message{"messages": messages})
}

func (h *ChatHandler) SendDirectMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID int64  `json:"receiverId"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body := strings.TrimSpace(req.Message)
	if req.ReceiverID == 0 || body == "" {
		writeError(w, http.StatusBadRequest, "Receiver ID and message are required")
		return
	}

	ctx := r.Context()
	senderID := middleware.UserID(ctx)
	if senderID == req.ReceiverID {
		writeError(w, http.StatusBadRequest, "Cannot message yourself")
		return
	}

	if _, err := h.Store.GetUserByID(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Receiver not found")
			return
		}
		h.Logger.Errorw("receiver lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	message, err := h.Store.CreateDirectMessage(ctx, senderID, req.ReceiverID, body)
	if err != nil {
		h.Logger.Errorw("message creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]*models.Message{"message": message})
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	err := h.Store.SoftDeleteMessage(r.Context(), messageID, middleware.UserID(r.Context()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Message not found")
			return
		}
		h.Logger.Errorw("message deletion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message deleted"})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
