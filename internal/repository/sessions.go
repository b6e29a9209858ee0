package repository

import (
	"context"
	"time"

	"sfme/evaluation/internal/model"
)

func (s *Store) CreateRefreshSession(ctx context.Context, session model.RefreshSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_sessions (id, user_id, user_type, token_hash, created_at, expires_at, last_seen_at, revoked_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, session.ID, session.UserID, session.UserType, session.TokenHash, session.CreatedAt,
		session.ExpiresAt, session.LastSeenAt, session.RevokedAt, session.UserAgent, session.IPAddress)
	return err
}

func (s *Store) GetRefreshSession(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	var session model.RefreshSession
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, user_type, token_hash, created_at, expires_at, last_seen_at, revoked_at, user_agent, ip_address
		FROM refresh_sessions
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(&session.ID, &session.UserID, &session.UserType, &session.TokenHash,
		&session.CreatedAt, &session.ExpiresAt, &session.LastSeenAt, &session.RevokedAt,
		&session.UserAgent, &session.IPAddress)
	return session, err
}

func (s *Store) RevokeRefreshSession(ctx context.Context, sessionID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_sessions SET revoked_at = $1 WHERE id = $2`, revokedAt, sessionID)
	return err
}

func (s *Store) RevokeRefreshSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_sessions SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL
	`, revokedAt, userID)
	return err
}

// RevokeIdleSessions revokes sessions whose last activity predates the
// cutoff; the server-side counterpart of the client's idle logout.
func (s *Store) RevokeIdleSessions(ctx context.Context, cutoff, revokedAt time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_sessions
		SET revoked_at = $1
		WHERE revoked_at IS NULL AND last_seen_at < $2
	`, revokedAt, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) TouchRefreshSession(ctx context.Context, sessionID string, seenAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_sessions SET last_seen_at = $1 WHERE id = $2`, seenAt, sessionID)
	return err
}
