package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	AvatarURL    string    `json:"avatarUrl"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary is the public slice of a user joined into other payloads.
type Summary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

func (u *User) Summary() Summary {
	return Summary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

// OtpRegistration is the pending-registration record, at most one per email.
type OtpRegistration struct {
	Email        string
	Username     string
	PasswordHash string
	OtpHash      string
	Attempts     int
	ExpiresAt    time.Time
}

type ConnectionRequest struct {
	From        Summary   `json:"from"`
	RequestedAt time.Time `json:"requestedAt"`
}

type Chat struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	IsGroup     bool      `json:"isGroup"`
	Members     []Summary `json:"members,omitempty"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Message is immutable once written except for the soft-delete flag.
// Exactly one of ChatID and ReceiverID is set.
type Message struct {
	ID         int64     `json:"id"`
	ChatID     int64     `json:"chatId,omitempty"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId,omitempty"`
	Body       string    `json:"body"`
	Sender     *Summary  `json:"sender,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Deleted    bool      `json:"-"`
}
