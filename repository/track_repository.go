package repository

import (
	"context"
	"database/sql"
	"fmt"

	"clipwave/model"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	// CreateTrack inserts a new track with play_count 0 and returns its id.
	// Every call creates a new record; there is no duplicate detection.
	CreateTrack(ctx context.Context, track *model.Track) (int64, error)
	// GetTrackByID returns (nil, nil) when no track exists with the id.
	GetTrackByID(ctx context.Context, id int64) (*model.Track, error)
	// GetAllTracks returns every track, newest first, ties broken by id.
	GetAllTracks(ctx context.Context) ([]*model.Track, error)
	// GetTracksByUploaderID returns one uploader's tracks, newest first.
	GetTracksByUploaderID(ctx context.Context, uploaderID int64) ([]*model.Track, error)
	// IncrementPlayCount atomically adds 1 to the track's play count and
	// returns the updated row, or (nil, nil) when the id does not exist.
	IncrementPlayCount(ctx context.Context, id int64) (*model.Track, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	db *sql.DB
}

// NewMySQLTrackRepository creates a new mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

const trackColumns = "id, uploader_id, title, description, audio_object_key, duration, play_count, created_at"

// CreateTrack adds a new track to the database.
func (r *mysqlTrackRepository) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (title, description, audio_object_key, uploader_id, duration, play_count)
	           VALUES (?, ?, ?, ?, ?, 0)`
	res, err := r.db.ExecContext(ctx, query, track.Title, track.Description, track.AudioObjectKey, track.UploaderID, track.Duration)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	return id, nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	track := &model.Track{}
	err := row.Scan(&track.ID, &track.UploaderID, &track.Title, &track.Description, &track.AudioObjectKey, &track.Duration, &track.PlayCount, &track.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetAllTracks retrieves all tracks from the database, newest first.
func (r *mysqlTrackRepository) GetAllTracks(ctx context.Context) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

// GetTracksByUploaderID retrieves all tracks uploaded by one user, newest first.
func (r *mysqlTrackRepository) GetTracksByUploaderID(ctx context.Context, uploaderID int64) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE uploader_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, uploaderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for uploader ID %d: %w", uploaderID, err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

// IncrementPlayCount bumps the play counter by exactly 1. The increment is a
// single UPDATE so concurrent calls on the same id never lose updates.
func (r *mysqlTrackRepository) IncrementPlayCount(ctx context.Context, id int64) (*model.Track, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE tracks SET play_count = play_count + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to execute IncrementPlayCount for track ID %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected for IncrementPlayCount: %w", err)
	}
	if affected == 0 {
		return nil, nil // Track not found
	}

	return r.GetTrackByID(ctx, id)
}

func scanTracks(rows *sql.Rows) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track := &model.Track{}
		err := rows.Scan(&track.ID, &track.UploaderID, &track.Title, &track.Description, &track.AudioObjectKey, &track.Duration, &track.PlayCount, &track.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during track rows iteration: %w", err)
	}

	return tracks, nil
}
