package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"linkup/internal/models"
	"linkup/internal/store"
)

func (s *SQLStore) AddConnectionRequest(ctx context.Context, toUserID, fromUserID int64) error {
	connected, err := s.Connected(ctx, toUserID, fromUserID)
	if err != nil {
		return err
	}
	if connected {
		return store.ErrAlreadyConnected
	}

	query := s.rebind("INSERT INTO connection_requests (to_user_id, from_user_id, created_at) VALUES (?, ?, ?)")
	_, err = s.db.ExecContext(ctx, query, toUserID, fromUserID, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrRequestPending
		}
		return err
	}
	return nil
}

func (s *SQLStore) HasPendingRequest(ctx context.Context, toUserID, fromUserID int64) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM connection_requests WHERE to_user_id = ? AND from_user_id = ?)")
	err := s.db.QueryRowContext(ctx, query, toUserID, fromUserID).Scan(&exists)
	return exists, err
}

// AcceptConnectionRequest removes the pending request and writes the
// symmetric edge. Both records change in one transaction, so a crash cannot
// leave a one-sided connection.
func (s *SQLStore) AcceptConnectionRequest(ctx context.Context, userID, fromUserID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		s.rebind("DELETE FROM connection_requests WHERE to_user_id = ? AND from_user_id = ?"),
		userID, fromUserID)
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

	// A crossed request in the other direction is consumed by the same accept.
	_, err = tx.ExecContext(ctx,
		s.rebind("DELETE FROM connection_requests WHERE to_user_id = ? AND from_user_id = ?"),
		fromUserID, userID)
	if err != nil {
		return err
	}

	if err := insertEdge(ctx, tx, s.rebind, userID, fromUserID); err != nil {
		return err
	}
	if err := insertEdge(ctx, tx, s.rebind, fromUserID, userID); err != nil {
		return err
	}

	return tx.Commit()
}

func insertEdge(ctx context.Context, tx *sql.Tx, rebind func(string) string, userID, otherID int64) error {
	query := rebind("INSERT INTO connections (user_id, other_user_id) VALUES (?, ?) ON CONFLICT DO NOTHING")
	_, err := tx.ExecContext(ctx, query, userID, otherID)
	return err
}

func (s *SQLStore) RejectConnectionRequest(ctx context.Context, userID, fromUserID int64) error {
	query := s.rebind("DELETE FROM connection_requests WHERE to_user_id = ? AND from_user_id = ?")
	result, err := s.db.ExecContext(ctx, query, userID, fromUserID)
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

func (s *SQLStore) ListConnectionRequests(ctx context.Context, userID int64) ([]models.ConnectionRequest, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, r.created_at
		FROM connection_requests r
		JOIN users u ON u.id = r.from_user_id
		WHERE r.to_user_id = ?
		ORDER BY r.created_at ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.ConnectionRequest
	for rows.Next() {
		var req models.ConnectionRequest
		if err := rows.Scan(&req.From.ID, &req.From.Username, &req.From.Email,
			&req.From.FullName, &req.From.AvatarURL, &req.RequestedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (s *SQLStore) ListConnections(ctx context.Context, userID int64) ([]models.Summary, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.email, u.full_name, u.avatar_url
		FROM connections c
		JOIN users u ON u.id = c.other_user_id
		WHERE c.user_id = ?
		ORDER BY u.username ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.Summary
	for rows.Next() {
		var u models.Summary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.AvatarURL); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) Connected(ctx context.Context, userID, otherID int64) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM connections WHERE user_id = ? AND other_user_id = ?)")
	err := s.db.QueryRowContext(ctx, query, userID, otherID).Scan(&exists)
	return exists, err
}
