package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clipforge/clipforge/internal/video"
)

// Compile-time check that VideoRepository implements video.Repository.
var _ video.Repository = (*VideoRepository)(nil)

// VideoRepository stores video records in the videos table.
type VideoRepository struct {
	db *sql.DB
}

const videoColumns = `id, user_id, platform, status, source_url, file_path,
	processed_url, duration, title, description, hashtags, created_from,
	original_filename, file_size, proc_started_at, proc_ended_at, proc_error,
	clip_start, clip_end, expires_at, created_at, updated_at`

// Save persists a record, overwriting any existing row with the same ID.
func (r *VideoRepository) Save(ctx context.Context, v *video.Video) error {
	hashtags, err := json.Marshal(v.Metadata.Hashtags)
	if err != nil {
		return fmt.Errorf("marshal hashtags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO videos (`+videoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			platform = excluded.platform,
			status = excluded.status,
			source_url = excluded.source_url,
			file_path = excluded.file_path,
			processed_url = excluded.processed_url,
			duration = excluded.duration,
			title = excluded.title,
			description = excluded.description,
			hashtags = excluded.hashtags,
			created_from = excluded.created_from,
			original_filename = excluded.original_filename,
			file_size = excluded.file_size,
			proc_started_at = excluded.proc_started_at,
			proc_ended_at = excluded.proc_ended_at,
			proc_error = excluded.proc_error,
			clip_start = excluded.clip_start,
			clip_end = excluded.clip_end,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		v.ID, v.UserID, string(v.Platform), string(v.Status), v.SourceURL, v.FilePath,
		v.ProcessedURL, v.Duration, v.Metadata.Title, v.Metadata.Description,
		string(hashtags), string(v.Metadata.CreatedFrom), v.Metadata.OriginalFilename,
		v.Metadata.FileSize, nullTime(v.Processing.StartedAt), nullTime(v.Processing.EndedAt),
		v.Processing.ErrorMessage, v.Processing.ClipStart, v.Processing.ClipEnd,
		v.ExpiresAt, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save video %s: %w", v.ID, err)
	}
	return nil
}

// FindByID retrieves a record by ID.
func (r *VideoRepository) FindByID(ctx context.Context, id string) (*video.Video, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, video.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find video %s: %w", id, err)
	}
	return v, nil
}

// ListExpired returns records whose retention window ended before now.
func (r *VideoRepository) ListExpired(ctx context.Context, now time.Time) ([]*video.Video, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE expires_at < ?`, now)
	if err != nil {
		return nil, fmt.Errorf("list expired videos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*video.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired video: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// Delete removes a record.
func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return video.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*video.Video, error) {
	var (
		v                  video.Video
		platform, status   string
		createdFrom        string
		hashtags           string
		startedAt, endedAt sql.NullTime
	)
	err := row.Scan(
		&v.ID, &v.UserID, &platform, &status, &v.SourceURL, &v.FilePath,
		&v.ProcessedURL, &v.Duration, &v.Metadata.Title, &v.Metadata.Description,
		&hashtags, &createdFrom, &v.Metadata.OriginalFilename, &v.Metadata.FileSize,
		&startedAt, &endedAt, &v.Processing.ErrorMessage,
		&v.Processing.ClipStart, &v.Processing.ClipEnd,
		&v.ExpiresAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Platform = video.Platform(platform)
	v.Status = video.Status(status)
	v.Metadata.CreatedFrom = video.Origin(createdFrom)
	if err := json.Unmarshal([]byte(hashtags), &v.Metadata.Hashtags); err != nil {
		return nil, fmt.Errorf("unmarshal hashtags: %w", err)
	}
	v.Processing.StartedAt = startedAt.Time
	v.Processing.EndedAt = endedAt.Time
	return &v, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
