package sqlstore

import (
	"context"

	"linkup/internal/models"
	"linkup/internal/store"
)

// UpsertOtp keeps at most one live registration per email; a repeat request
// replaces the previous record wholesale, resetting the attempt counter.
func (s *SQLStore) UpsertOtp(ctx context.Context, reg *models.OtpRegistration) error {
	query := s.rebind(`
		INSERT INTO otp_registrations (email, username, password_hash, otp_hash, attempts, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			username = excluded.username,
			password_hash = excluded.password_hash,
			otp_hash = excluded.otp_hash,
			attempts = excluded.attempts,
			expires_at = excluded.expires_at
	`)
	_, err := s.db.ExecContext(ctx, query,
		reg.Email, reg.Username, reg.PasswordHash, reg.OtpHash, reg.Attempts, reg.ExpiresAt)
	return err
}

func (s *SQLStore) GetOtp(ctx context.Context, email string) (*models.OtpRegistration, error) {
	var reg models.OtpRegistration
	query := s.rebind(`SELECT email, username, password_hash, otp_hash, attempts, expires_at
		FROM otp_registrations WHERE email = ?`)
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&reg.Email, &reg.Username, &reg.PasswordHash, &reg.OtpHash, &reg.Attempts, &reg.ExpiresAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (s *SQLStore) IncrementOtpAttempts(ctx context.Context, email string) error {
	query := s.rebind("UPDATE otp_registrations SET attempts = attempts + 1 WHERE email = ?")
	result, err := s.db.ExecContext(ctx, query, email)
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

func (s *SQLStore) DeleteOtp(ctx context.Context, email string) error {
	query := s.rebind("DELETE FROM otp_registrations WHERE email = ?")
	_, err := s.db.ExecContext(ctx, query, email)
	return err
}
