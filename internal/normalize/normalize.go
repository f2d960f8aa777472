// Package normalize turns raw scraper items into canonical post
// records. Scraper versions disagree on field names, so every logical
// field resolves through an ordered list of synonyms; items that still
// lack an identifier or URL after resolution are rejected.
package normalize

import (
	"encoding/json"
	"time"

	"github.com/araddon/dateparse"

	"social_watch/internal/domain"
	"social_watch/internal/scrape"
)

// Synonym lists per logical field, in priority order. The first
// present non-empty value wins.
var (
	idFields      = []string{"id", "tweet_id", "rest_id"}
	urlFields     = []string{"url", "permalink"}
	textFields    = []string{"text", "full_text"}
	createdFields = []string{"created_at", "date"}
	metricsFields = []string{"metrics", "public_metrics"}
	langFields    = []string{"lang", "language"}
	replyFields   = []string{"in_reply_to_status_id", "reply_to_id"}
	quotedFields  = []string{"quoted_status_id", "quote_id"}
	mediaFields   = []string{"media", "attached_media"}
)

// Post maps one raw scraper item plus its account context to a
// canonical record. The second return is false when the item fails the
// mandatory-field gate (no identifier or no URL); such items are
// dropped silently by the caller, never stored half-populated.
func Post(item scrape.Item, account domain.Account, now time.Time) (*domain.Post, bool) {
	postID := firstString(item, idFields)
	url := firstString(item, urlFields)
	if postID == "" || url == "" {
		return nil, false
	}

	post := &domain.Post{
		Platform:          account.Platform,
		PostID:            postID,
		URL:               url,
		Category:          domain.NormalizeCategory(account.Category),
		AccountID:         account.ID,
		AuthorHandle:      account.Handle,
		AuthorDisplayName: account.DisplayName,
		Text:              firstString(item, textFields),
		Lang:              firstString(item, langFields),
		RetrievedAt:       now.UTC(),
		MediaJSON:         marshalOr(firstValue(item, mediaFields), "[]"),
		MetricsJSON:       marshalOr(firstValue(item, metricsFields), "{}"),
		RawJSON:           marshalOr(map[string]any(item), "{}"),
	}

	if created := firstString(item, createdFields); created != "" {
		if t, err := dateparse.ParseAny(created); err == nil {
			utc := t.UTC()
			post.CreatedAt = &utc
		}
	}
	if reply := firstString(item, replyFields); reply != "" {
		post.ReplyToPostID = &reply
	}
	if quoted := firstString(item, quotedFields); quoted != "" {
		post.QuotedPostID = &quoted
	}

	return post, true
}

// firstString resolves the first candidate field that holds a non-empty
// scalar. Identifiers arrive as strings in some scraper versions and as
// numbers in others, so numeric values are coerced to their literal
// form.
func firstString(item scrape.Item, candidates []string) string {
	for _, name := range candidates {
		v, ok := item[name]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case json.Number:
			return s.String()
		}
	}
	return ""
}

func firstValue(item scrape.Item, candidates []string) any {
	for _, name := range candidates {
		if v, ok := item[name]; ok && v != nil {
			return v
		}
	}
	return nil
}

func marshalOr(v any, fallback string) string {
	if v == nil {
		return fallback
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(data)
}
