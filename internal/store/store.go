package store

import (
	"context"
	"errors"

	"linkup/internal/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrUserExists       = errors.New("user already exists")
	ErrRequestPending   = errors.New("connection request already pending")
	ErrAlreadyConnected = errors.New("users already connected")
)

type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, email, username string) (bool, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	SearchUsers(ctx context.Context, query string, excludeID int64) ([]models.Summary, error)

	// Connection graph
	AddConnectionRequest(ctx context.Context, toUserID, fromUserID int64) error
	HasPendingRequest(ctx context.Context, toUserID, fromUserID int64) (bool, error)
	AcceptConnectionRequest(ctx context.Context, userID, fromUserID int64) error
	RejectConnectionRequest(ctx context.Context, userID, fromUserID int64) error
	ListConnectionRequests(ctx context.Context, userID int64) ([]models.ConnectionRequest, error)
	ListConnections(ctx context.Context, userID int64) ([]models.Summary, error)
	Connected(ctx context.Context, userID, otherID int64) (bool, error)

	// OTP registrations
	UpsertOtp(ctx context.Context, reg *models.OtpRegistration) error
	GetOtp(ctx context.Context, email string) (*models.OtpRegistration, error)
	IncrementOtpAttempts(ctx context.Context, email string) error
	DeleteOtp(ctx context.Context, email string) error

	// Chats and messages
	CreateChat(ctx context.Context, name string, isGroup bool, memberIDs []int64) (int64, error)
	GetChat(ctx context.Context, chatID int64) (*models.Chat, error)
	IsChatMember(ctx context.Context, chatID, userID int64) (bool, error)
	ListUserChats(ctx context.Context, userID int64) ([]models.Chat, error)
	CreateGroupMessage(ctx context.Context, chatID, senderID int64, body string) (*models.Message, error)
	CreateDirectMessage(ctx context.Context, senderID, receiverID int64, body string) (*models.Message, error)
	ListChatMessages(ctx context.Context, chatID int64) ([]models.Message, error)
	ListDirectMessages(ctx context.Context, userA, userB int64) ([]models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID, senderID int64) error
}
