package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// LikeStore owns the post_likes side table. Counts are global, created
// lazily on first like, and never go below zero.
type LikeStore struct {
	db *sqlx.DB
}

func NewLikeStore(db *sqlx.DB) *LikeStore {
	return &LikeStore{db: db}
}

// Like increments the count for a post and returns the new value.
func (s *LikeStore) Like(ctx context.Context, postID string) (int64, error) {
	query := `
		INSERT INTO post_likes (post_id, like_count, updated_at)
		VALUES (?, 1, datetime('now'))
		ON CONFLICT (post_id) DO UPDATE SET
			like_count = like_count + 1,
			updated_at = datetime('now')`

	if _, err := s.db.ExecContext(ctx, query, postID); err != nil {
		return 0, err
	}
	return s.count(ctx, postID)
}

// Unlike decrements the count, clamped at zero, and returns the new
// value. The row is created first so the update always has a target.
func (s *LikeStore) Unlike(ctx context.Context, postID string) (int64, error) {
	ensure := `
		INSERT INTO post_likes (post_id, like_count, updated_at)
		VALUES (?, 0, datetime('now'))
		ON CONFLICT (post_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, ensure, postID); err != nil {
		return 0, err
	}

	update := `
		UPDATE post_likes
		SET like_count = CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END,
		    updated_at = datetime('now')
		WHERE post_id = ?`
	if _, err := s.db.ExecContext(ctx, update, postID); err != nil {
		return 0, err
	}
	return s.count(ctx, postID)
}

func (s *LikeStore) count(ctx context.Context, postID string) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT like_count FROM post_likes WHERE post_id = ?`, postID)
	return n, err
}
