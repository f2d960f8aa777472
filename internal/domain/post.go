package domain

import (
	"errors"
	"time"
)

// PlatformX is the only platform currently tracked.
const PlatformX = "x"

// CategoryUnknown is the fallback when an account carries a category
// outside the allowed set.
const CategoryUnknown = "unknown"

// AllowedCategories is the fixed set of account categories. Anything
// else is coerced to CategoryUnknown during normalization.
var AllowedCategories = map[string]struct{}{
	"government":    {},
	"independent":   {},
	CategoryUnknown: {},
}

// ErrMissingField signals that a post record reached the store without a
// mandatory field. The normalizer guarantees these fields, so hitting
// this error means an upstream bug, not bad external data.
var ErrMissingField = errors.New("post record missing mandatory field")

// NormalizeCategory validates a category against the allowed set and
// falls back to "unknown" instead of failing.
func NormalizeCategory(category string) string {
	if _, ok := AllowedCategories[category]; ok {
		return category
	}
	return CategoryUnknown
}

type Account struct {
	ID          int64  `db:"id" json:"account_id"`
	Platform    string `db:"platform" json:"platform"`
	Handle      string `db:"handle" json:"handle"`
	DisplayName string `db:"display_name" json:"display_name"`
	Category    string `db:"category" json:"category"`
	Enabled     bool   `db:"is_enabled" json:"is_enabled"`
}

// Post is the canonical record of one scraped item, produced by the
// normalizer and stored exactly once per (platform, post_id).
type Post struct {
	ID                int64
	Platform          string
	PostID            string
	URL               string
	Category          string
	AccountID         int64
	AuthorHandle      string
	AuthorDisplayName string
	Text              string
	Lang              string
	CreatedAt         *time.Time // source timestamp; nil when absent or unparseable
	RetrievedAt       time.Time  // stamped fresh at normalization, always UTC
	MediaJSON         string
	MetricsJSON       string
	ReplyToPostID     *string
	QuotedPostID      *string
	RawJSON           string // verbatim scraper item, kept for forensic replay

	// LikeCount is populated on the read path only, joined from the
	// post_likes side table.
	LikeCount int64
}
