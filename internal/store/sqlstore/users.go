package sqlstore

import (
	"context"
	"time"

	"linkup/internal/models"
	"linkup/internal/store"
)

const userColumns = "id, username, email, password_hash, full_name, avatar_url, bio, created_at"

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	query := s.rebind(`INSERT INTO users (username, email, password_hash, full_name, avatar_url, bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash,
		user.FullName, user.AvatarURL, user.Bio, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrUserExists
		}
		return 0, err
	}
	user.ID = id
	return id, nil
}

func (s *SQLStore) scanUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FullName, &user.AvatarURL, &user.Bio, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

func (s *SQLStore) UserExists(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM users WHERE email = ? OR username = ?)")
	err := s.db.QueryRowContext(ctx, query, email, username).Scan(&exists)
	return exists, err
}

func (s *SQLStore) UpdateProfile(ctx context.Context, user *models.User) error {
	query := s.rebind(`UPDATE users SET username = ?, email = ?, full_name = ?, avatar_url = ?, bio = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		user.Username, user.Email, user.FullName, user.AvatarURL, user.Bio, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserExists
		}
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

func (s *SQLStore) SearchUsers(ctx context.Context, queryStr string, excludeID int64) ([]models.Summary, error) {
	query := s.rebind(`SELECT id, username, email, full_name, avatar_url FROM users
		WHERE (username LIKE ? OR full_name LIKE ?) AND id != ? LIMIT 20`)
	pattern := "%" + queryStr + "%"
	rows, err := s.db.QueryContext(ctx, query, pattern, pattern, excludeID)
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
