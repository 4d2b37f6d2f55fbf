package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/castdeck/internal/episode"
)

const episodeColumns = `id, user_id, title, description, script, audio_url, status,
	duration_ms, created_at, published_at`

// Create inserts a new draft episode.
func (s *Store) Create(ctx context.Context, userID string, d episode.Draft) (*episode.Episode, error) {
	d, err := d.Normalize()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	e := &episode.Episode{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       d.Title,
		Description: d.Description,
		Script:      d.Script,
		Status:      episode.StatusDraft,
		CreatedAt:   now,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, user_id, title, description, script, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Title, e.Description, e.Script, string(e.Status), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, e.ID)
}

// Get returns an episode by ID.
func (s *Store) Get(ctx context.Context, id string) (*episode.Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, episode.ErrNotFound
	}
	return e, err
}

// ListByUser returns a user's episodes, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]episode.Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes
		WHERE user_id = ?
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []episode.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, *e)
	}
	return episodes, rows.Err()
}

// Update replaces the editable fields of an episode.
func (s *Store) Update(ctx context.Context, id string, d episode.Draft) (*episode.Episode, error) {
	d, err := d.Normalize()
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET title = ?, description = ?, script = ?, updated_at = ?
		WHERE id = ?
	`, d.Title, d.Description, d.Script, time.Now().UnixMilli(), id)
	if err := checkAffected(res, err); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes an episode.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	return checkAffected(res, err)
}

// SetStatus changes an episode's status.
func (s *Store) SetStatus(ctx context.Context, id string, status episode.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), time.Now().UnixMilli(), id)
	return checkAffected(res, err)
}

// ClaimProcessing marks an episode PROCESSING in a single conditional update,
// so concurrent callers cannot both claim it. A PROCESSING row last touched
// before staleBefore is treated as abandoned and can be claimed again.
func (s *Store) ClaimProcessing(ctx context.Context, id string, staleBefore time.Time) error {
	processing := string(episode.StatusProcessing)
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET status = ?, updated_at = ?
		WHERE id = ? AND (status <> ? OR updated_at < ?)
	`, processing, time.Now().UnixMilli(), id, processing, staleBefore.UnixMilli())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM episodes WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return episode.ErrNotFound
	}
	if err != nil {
		return err
	}
	return episode.ErrAlreadyProcessing
}

// Publish records generated audio and marks the episode published.
func (s *Store) Publish(ctx context.Context, id, audioURL string, duration time.Duration, at time.Time) error {
	return WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM episodes WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return episode.ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE episodes
			SET audio_url = ?, duration_ms = ?, status = ?, published_at = ?, updated_at = ?
			WHERE id = ?
		`, audioURL, duration.Milliseconds(), string(episode.StatusPublished), at.UnixMilli(), at.UnixMilli(), id)
		if err != nil {
			return fmt.Errorf("publish %s (was %s): %w", id, status, err)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row scanner) (*episode.Episode, error) {
	var e episode.Episode
	var audioURL sql.NullString
	var status string
	var durationMS, createdAt int64
	var publishedAt sql.NullInt64
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &e.Script, &audioURL,
		&status, &durationMS, &createdAt, &publishedAt); err != nil {
		return nil, err
	}
	e.AudioURL = nullStringValue(audioURL)
	e.Status = episode.Status(status)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.CreatedAt = time.UnixMilli(createdAt)
	if publishedAt.Valid {
		t := time.UnixMilli(publishedAt.Int64)
		e.PublishedAt = &t
	}
	return &e, nil
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return episode.ErrNotFound
	}
	return nil
}
