package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/llehouerou/castdeck/internal/auth"
)

// CreateUser inserts a user. A duplicate email yields auth.ErrUserExists.
func (s *Store) CreateUser(ctx context.Context, u auth.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt.UnixMilli())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return auth.ErrUserExists
	}
	return err
}

// GetUserByEmail looks a user up by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var u auth.User
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(createdAt)
	return &u, nil
}

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, sess auth.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)
	`, sess.Token, sess.UserID, sess.CreatedAt.UnixMilli(), sess.ExpiresAt.UnixMilli())
	return err
}

// GetSession returns the session for token with its user's email.
func (s *Store) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	var sess auth.Session
	var createdAt, expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT s.token, s.user_id, u.email, s.created_at, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ?
	`, token).Scan(&sess.Token, &sess.UserID, &sess.Email, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = time.UnixMilli(createdAt)
	sess.ExpiresAt = time.UnixMilli(expiresAt)
	return &sess, nil
}

// ExtendSession moves a session's expiry.
func (s *Store) ExtendSession(ctx context.Context, token string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET expires_at = ? WHERE token = ?`,
		expiresAt.UnixMilli(), token)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrInvalidToken
	}
	return nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteExpiredSessions removes sessions that expired before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
