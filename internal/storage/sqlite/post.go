package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"social_watch/internal/domain"
)

type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

// PostFilter narrows the read path. Limit and Offset are clamped, not
// rejected, so a misbehaving caller degrades instead of erroring.
type PostFilter struct {
	Platform  string
	Category  string
	AccountID *int64
	Limit     int
	Offset    int
}

const (
	maxLimit  = 100
	maxOffset = 10_000
)

// Insert writes one canonical record and reports whether a new row was
// created. A record already present under (platform, post_id) is a
// no-op returning false; repeated runs over the same source data hit
// this on every pass after the first.
//
// Mandatory fields are re-checked here and fail loudly: the normalizer
// already rejected incomplete items, so a miss at this layer is an
// upstream bug, not bad external data.
func (s *PostStore) Insert(ctx context.Context, post *domain.Post) (bool, error) {
	for field, value := range map[string]string{
		"platform": post.Platform,
		"post_id":  post.PostID,
		"url":      post.URL,
		"category": post.Category,
	} {
		if value == "" {
			return false, fmt.Errorf("%s: %w", field, domain.ErrMissingField)
		}
	}

	query := `
		INSERT OR IGNORE INTO posts (
			platform, post_id, url, category, account_id,
			author_handle, author_display_name, text, lang,
			created_at, retrieved_at, media_json, metrics_json,
			reply_to_post_id, quoted_post_id, raw_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := executor(ctx, s.db).ExecContext(ctx, query,
		post.Platform,
		post.PostID,
		post.URL,
		post.Category,
		nullableID(post.AccountID),
		post.AuthorHandle,
		post.AuthorDisplayName,
		post.Text,
		post.Lang,
		formatTimePtr(post.CreatedAt),
		post.RetrievedAt.UTC().Format(time.RFC3339),
		post.MediaJSON,
		post.MetricsJSON,
		post.ReplyToPostID,
		post.QuotedPostID,
		post.RawJSON,
	)
	if err != nil {
		return false, fmt.Errorf("insert post: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List returns posts newest first, joined against the like-count side
// table; posts never liked carry a count of 0.
func (s *PostStore) List(ctx context.Context, filter PostFilter) ([]domain.Post, error) {
	query := `
		SELECT p.id, p.platform, p.post_id, p.url, p.category, p.account_id,
		       p.author_handle, p.author_display_name, p.text, p.lang,
		       p.created_at, p.retrieved_at, p.media_json, p.metrics_json,
		       p.reply_to_post_id, p.quoted_post_id, p.raw_json,
		       COALESCE(l.like_count, 0) AS like_count
		FROM posts p
		LEFT JOIN post_likes l ON l.post_id = p.post_id
		WHERE p.platform = ?`
	args := []any{filter.Platform}

	if filter.Category != "" {
		query += ` AND p.category = ?`
		args = append(args, filter.Category)
	}
	if filter.AccountID != nil {
		query += ` AND p.account_id = ?`
		args = append(args, *filter.AccountID)
	}

	query += ` ORDER BY p.created_at DESC LIMIT ? OFFSET ?`
	args = append(args,
		clamp(filter.Limit, 1, maxLimit),
		clamp(filter.Offset, 0, maxOffset),
	)

	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toDomain())
	}
	return posts, nil
}

// GetByPostID returns one post with its like count, or sql.ErrNoRows.
func (s *PostStore) GetByPostID(ctx context.Context, postID string) (*domain.Post, error) {
	query := `
		SELECT p.id, p.platform, p.post_id, p.url, p.category, p.account_id,
		       p.author_handle, p.author_display_name, p.text, p.lang,
		       p.created_at, p.retrieved_at, p.media_json, p.metrics_json,
		       p.reply_to_post_id, p.quoted_post_id, p.raw_json,
		       COALESCE(l.like_count, 0) AS like_count
		FROM posts p
		LEFT JOIN post_likes l ON l.post_id = p.post_id
		WHERE p.post_id = ?`

	var row postRow
	if err := s.db.GetContext(ctx, &row, query, postID); err != nil {
		return nil, err
	}
	post := row.toDomain()
	return &post, nil
}

func (s *PostStore) Count(ctx context.Context, filter PostFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM posts WHERE platform = ?`
	args := []any{filter.Platform}

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.AccountID != nil {
		query += ` AND account_id = ?`
		args = append(args, *filter.AccountID)
	}

	var n int64
	err := s.db.GetContext(ctx, &n, query, args...)
	return n, err
}

type postRow struct {
	ID                int64          `db:"id"`
	Platform          string         `db:"platform"`
	PostID            string         `db:"post_id"`
	URL               string         `db:"url"`
	Category          string         `db:"category"`
	AccountID         sql.NullInt64  `db:"account_id"`
	AuthorHandle      string         `db:"author_handle"`
	AuthorDisplayName string         `db:"author_display_name"`
	Text              string         `db:"text"`
	Lang              string         `db:"lang"`
	CreatedAt         sql.NullString `db:"created_at"`
	RetrievedAt       string         `db:"retrieved_at"`
	MediaJSON         string         `db:"media_json"`
	MetricsJSON       string         `db:"metrics_json"`
	ReplyToPostID     *string        `db:"reply_to_post_id"`
	QuotedPostID      *string        `db:"quoted_post_id"`
	RawJSON           string         `db:"raw_json"`
	LikeCount         int64          `db:"like_count"`
}

func (r postRow) toDomain() domain.Post {
	post := domain.Post{
		ID:                r.ID,
		Platform:          r.Platform,
		PostID:            r.PostID,
		URL:               r.URL,
		Category:          r.Category,
		AccountID:         r.AccountID.Int64,
		AuthorHandle:      r.AuthorHandle,
		AuthorDisplayName: r.AuthorDisplayName,
		Text:              r.Text,
		Lang:              r.Lang,
		MediaJSON:         r.MediaJSON,
		MetricsJSON:       r.MetricsJSON,
		ReplyToPostID:     r.ReplyToPostID,
		QuotedPostID:      r.QuotedPostID,
		RawJSON:           r.RawJSON,
		LikeCount:         r.LikeCount,
	}
	if r.CreatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, r.CreatedAt.String); err == nil {
			post.CreatedAt = &t
		}
	}
	if t, err := time.Parse(time.RFC3339, r.RetrievedAt); err == nil {
		post.RetrievedAt = t
	}
	return post
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
