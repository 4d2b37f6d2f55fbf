package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/llehouerou/castdeck/internal/episode"
)

// GetProfile returns a user's profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*episode.Profile, error) {
	var p episode.Profile
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, bio, updated_at FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.DisplayName, &p.Bio, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, episode.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = time.UnixMilli(updatedAt)
	return &p, nil
}

// UpsertProfile creates or replaces a profile.
func (s *Store) UpsertProfile(ctx context.Context, p episode.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, bio, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			bio = excluded.bio,
			updated_at = excluded.updated_at
	`, p.UserID, p.DisplayName, p.Bio, p.UpdatedAt.UnixMilli())
	return err
}
