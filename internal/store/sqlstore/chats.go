package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"linkup/internal/models"
	"linkup/internal/store"
)

func (s *SQLStore) CreateChat(ctx context.Context, name string, isGroup bool, memberIDs []int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var chatID int64
	query := s.rebind("INSERT INTO chats (name, is_group, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id")
	if err := tx.QueryRowContext(ctx, query, name, isGroup, now, now).Scan(&chatID); err != nil {
		return 0, err
	}

	memberQuery := s.rebind("INSERT INTO chat_members (chat_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING")
	for _, userID := range memberIDs {
		if _, err := tx.ExecContext(ctx, memberQuery, chatID, userID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return chatID, nil
}

func (s *SQLStore) GetChat(ctx context.Context, chatID int64) (*models.Chat, error) {
	var chat models.Chat
	var lastMessageID sql.NullInt64
	query := s.rebind("SELECT id, name, is_group, last_message_id, created_at, updated_at FROM chats WHERE id = ?")
	err := s.db.QueryRowContext(ctx, query, chatID).Scan(
		&chat.ID, &chat.Name, &chat.IsGroup, &lastMessageID, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	chat.Members, err = s.chatMembers(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if lastMessageID.Valid {
		chat.LastMessage, err = s.getMessage(ctx, lastMessageID.Int64)
		if err != nil && err != store.ErrNotFound {
			return nil, err
		}
	}
	return &chat, nil
}

func (s *SQLStore) chatMembers(ctx context.Context, chatID int64) ([]models.Summary, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.email, u.full_name, u.avatar_url
		FROM chat_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.chat_id = ?
	`)
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Summary
	for rows.Next() {
		var m models.Summary
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.FullName, &m.AvatarURL); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *SQLStore) IsChatMember(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM chat_members WHERE chat_id = ? AND user_id = ?)")
	err := s.db.QueryRowContext(ctx, query, chatID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) ListUserChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	query := s.rebind(`
		SELECT c.id, c.name, c.is_group, c.last_message_id, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_members m ON c.id = m.chat_id
		WHERE m.user_id = ?
		ORDER BY c.updated_at DESC
	`)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	type chatRow struct {
		chat          models.Chat
		lastMessageID sql.NullInt64
	}
	var chatRows []chatRow
	for rows.Next() {
		var cr chatRow
		if err := rows.Scan(&cr.chat.ID, &cr.chat.Name, &cr.chat.IsGroup,
			&cr.lastMessageID, &cr.chat.CreatedAt, &cr.chat.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		chatRows = append(chatRows, cr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var chats []models.Chat
	for _, cr := range chatRows {
		chat := cr.chat
		chat.Members, err = s.chatMembers(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
		if cr.lastMessageID.Valid {
			chat.LastMessage, err = s.getMessage(ctx, cr.lastMessageID.Int64)
			if err != nil && err != store.ErrNotFound {
				return nil, err
			}
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

const messageColumns = `
	m.id, m.chat_id, m.sender_id, m.receiver_id, m.body, m.created_at,
	u.id, u.username, u.email, u.full_name, u.avatar_url`

func scanMessage(row interface {
	Scan(dest ...interface{}) error
}) (*models.Message, error) {
	var m models.Message
	var sender models.Summary
	var chatID, receiverID sql.NullInt64
	err := row.Scan(&m.ID, &chatID, &m.SenderID, &receiverID, &m.Body, &m.CreatedAt,
		&sender.ID, &sender.Username, &sender.Email, &sender.FullName, &sender.AvatarURL)
	if err != nil {
		return nil, err
	}
	m.ChatID = chatID.Int64
	m.ReceiverID = receiverID.Int64
	m.Sender = &sender
	return &m, nil
}

func (s *SQLStore) getMessage(ctx context.Context, messageID int64) (*models.Message, error) {
	query := s.rebind(`SELECT ` + messageColumns + `
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.id = ? AND m.deleted = FALSE`)
	m, err := scanMessage(s.db.QueryRowContext(ctx, query, messageID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// CreateGroupMessage writes the message and moves the chat's last-message
// pointer in the same transaction.
func (s *SQLStore) CreateGroupMessage(ctx context.Context, chatID, senderID int64, body string) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var id int64
	query := s.rebind("INSERT INTO messages (chat_id, sender_id, body, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	if err := tx.QueryRowContext(ctx, query, chatID, senderID, body, now).Scan(&id); err != nil {
		return nil, err
	}

	query = s.rebind("UPDATE chats SET last_message_id = ?, updated_at = ? WHERE id = ?")
	if _, err := tx.ExecContext(ctx, query, id, now, chatID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.getMessage(ctx, id)
}

func (s *SQLStore) CreateDirectMessage(ctx context.Context, senderID, receiverID int64, body string) (*models.Message, error) {
	now := time.Now().UTC()
	var id int64
	query := s.rebind("INSERT INTO messages (sender_id, receiver_id, body, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRowContext(ctx, query, senderID, receiverID, body, now).Scan(&id); err != nil {
		return nil, err
	}
	return s.getMessage(ctx, id)
}

func (s *SQLStore) ListChatMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	query := s.rebind(`SELECT ` + messageColumns + `
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = ? AND m.deleted = FALSE
		ORDER BY m.created_at ASC, m.id ASC`)
	return s.listMessages(ctx, query, chatID)
}

func (s *SQLStore) ListDirectMessages(ctx context.Context, userA, userB int64) ([]models.Message, error) {
	query := s.rebind(`SELECT ` + messageColumns + `
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE ((m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?))
			AND m.deleted = FALSE
		ORDER BY m.created_at ASC, m.id ASC`)
	return s.listMessages(ctx, query, userA, userB, userB, userA)
}

func (s *SQLStore) listMessages(ctx context.Context, query string, args ...interface{}) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// SoftDeleteMessage flags a message deleted; only its sender may do so.
func (s *SQLStore) SoftDeleteMessage(ctx context.Context, messageID, senderID int64) error {
	query := s.rebind("UPDATE messages SET deleted = TRUE WHERE id = ? AND sender_id = ?")
	result, err := s.db.ExecContext(ctx, query, messageID, senderID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}
