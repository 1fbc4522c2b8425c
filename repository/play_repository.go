package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"duetfm/model"
)

// PlayRepository defines the interface for play event rows. Plays are
// append-only; there is no update or delete.
type PlayRepository interface {
	CreatePlay(ctx context.Context, play *model.Play) (int64, error)
	GetAllPlays(ctx context.Context) ([]*model.Play, error)
	GetPlaysSince(ctx context.Context, cutoff time.Time) ([]*model.Play, error)
}

// mysqlPlayRepository implements PlayRepository over a raw sql.DB handle.
type mysqlPlayRepository struct {
	DB *sql.DB
}

// NewMySQLPlayRepository creates a raw-SQL PlayRepository.
func NewMySQLPlayRepository(db *sql.DB) PlayRepository {
	return &mysqlPlayRepository{DB: db}
}

// CreatePlay appends a play event.
func (r *mysqlPlayRepository) CreatePlay(ctx context.Context, play *model.Play) (int64, error) {
	if play.PlayedAt.IsZero() {
		play.PlayedAt = time.Now()
	}

	query := `INSERT INTO plays (song_id, played_by, played_at) VALUES (?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, query, play.SongID, play.PlayedBy, play.PlayedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert play: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for play: %w", err)
	}
	play.ID = id
	return id, nil
}

// GetAllPlays returns every play event.
func (r *mysqlPlayRepository) GetAllPlays(ctx context.Context) ([]*model.Play, error) {
	query := `SELECT id, song_id, played_by, played_at FROM plays`
	return r.queryPlays(ctx, query)
}

// GetPlaysSince returns play events with played_at >= cutoff (inclusive).
func (r *mysqlPlayRepository) GetPlaysSince(ctx context.Context, cutoff time.Time) ([]*model.Play, error) {
	query := `SELECT id, song_id, played_by, played_at FROM plays WHERE played_at >= ?`
	return r.queryPlays(ctx, query, cutoff)
}

func (r *mysqlPlayRepository) queryPlays(ctx context.Context, query string, args ...interface{}) ([]*model.Play, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	plays := make([]*model.Play, 0)
	for rows.Next() {
		play := &model.Play{}
		if err := rows.Scan(&play.ID, &play.SongID, &play.PlayedBy, &play.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play row: %w", err)
		}
		plays = append(plays, play)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during plays iteration: %w", err)
	}

	return plays, nil
}
