package repository

import (
	"context"
	"time"

	"sfme/evaluation/internal/model"
)

func (s *Store) CreateOTP(ctx context.Context, otp model.EmailOTP) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_otps (id, email, code, purpose, role, pending_token, attempts, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, otp.ID, otp.Email, otp.Code, otp.Purpose, otp.Role, otp.PendingToken,
		otp.Attempts, otp.CreatedAt, otp.ExpiresAt, otp.Used)
	return err
}

func (s *Store) GetOTPByPendingToken(ctx context.Context, pendingToken string) (model.EmailOTP, error) {
	var otp model.EmailOTP
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, code, purpose, role, pending_token, attempts, created_at, expires_at, used
		FROM email_otps
		WHERE pending_token = $1
	`, pendingToken)
	err := row.Scan(&otp.ID, &otp.Email, &otp.Code, &otp.Purpose, &otp.Role, &otp.PendingToken,
		&otp.Attempts, &otp.CreatedAt, &otp.ExpiresAt, &otp.Used)
	return otp, err
}

func (s *Store) IncrementOTPAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	row := s.pool.QueryRow(ctx, `
		UPDATE email_otps SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts
	`, id)
	err := row.Scan(&attempts)
	return attempts, err
}

func (s *Store) MarkOTPUsed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE email_otps SET used = true WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM email_otps WHERE used = true OR expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
