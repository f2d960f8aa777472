package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"social_watch/internal/domain"
	"social_watch/internal/storage/sqlite"
)

type postJSON struct {
	ID                int64           `json:"id"`
	Platform          string          `json:"platform"`
	PostID            string          `json:"post_id"`
	URL               string          `json:"url"`
	Category          string          `json:"category"`
	AccountID         int64           `json:"account_id,omitempty"`
	AuthorHandle      string          `json:"author_handle"`
	AuthorDisplayName string          `json:"author_display_name"`
	Text              string          `json:"text"`
	Lang              string          `json:"lang,omitempty"`
	CreatedAt         *time.Time      `json:"created_at,omitempty"`
	RetrievedAt       time.Time       `json:"retrieved_at"`
	Media             json.RawMessage `json:"media"`
	Metrics           json.RawMessage `json:"metrics"`
	ReplyToPostID     *string         `json:"reply_to_post_id,omitempty"`
	QuotedPostID      *string         `json:"quoted_post_id,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"`
	LikeCount         int64           `json:"like_count"`
}

func toPostJSON(p domain.Post, includeRaw bool) postJSON {
	out := postJSON{
		ID:                p.ID,
		Platform:          p.Platform,
		PostID:            p.PostID,
		URL:               p.URL,
		Category:          p.Category,
		AccountID:         p.AccountID,
		AuthorHandle:      p.AuthorHandle,
		AuthorDisplayName: p.AuthorDisplayName,
		Text:              p.Text,
		Lang:              p.Lang,
		CreatedAt:         p.CreatedAt,
		RetrievedAt:       p.RetrievedAt,
		Media:             json.RawMessage(p.MediaJSON),
		Metrics:           json.RawMessage(p.MetricsJSON),
		ReplyToPostID:     p.ReplyToPostID,
		QuotedPostID:      p.QuotedPostID,
		LikeCount:         p.LikeCount,
	}
	if includeRaw {
		out.Raw = json.RawMessage(p.RawJSON)
	}
	return out
}

func (s *Server) health(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listPosts(c *gin.Context) {
	filter := sqlite.PostFilter{
		Platform: c.DefaultQuery("platform", domain.PlatformX),
		Category: c.Query("category"),
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
	}
	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account_id"})
			return
		}
		filter.AccountID = &id
	}

	ctx := c.Request.Context()
	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		s.internalError(c, "list posts", err)
		return
	}
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		s.internalError(c, "count posts", err)
		return
	}

	out := make([]postJSON, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostJSON(p, false))
	}
	c.JSON(http.StatusOK, gin.H{"posts": out, "total": total})
}

func (s *Server) getPost(c *gin.Context) {
	post, ok := s.findPost(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toPostJSON(*post, true))
}

func (s *Server) likePost(c *gin.Context) {
	post, ok := s.findPost(c)
	if !ok {
		return
	}
	count, err := s.likes.Like(c.Request.Context(), post.PostID)
	if err != nil {
		s.internalError(c, "like post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": post.PostID, "like_count": count})
}

func (s *Server) unlikePost(c *gin.Context) {
	post, ok := s.findPost(c)
	if !ok {
		return
	}
	count, err := s.likes.Unlike(c.Request.Context(), post.PostID)
	if err != nil {
		s.internalError(c, "unlike post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": post.PostID, "like_count": count})
}

// downloadMedia proxies the first media attachment of a post so the
// dashboard can offer downloads without exposing upstream URLs.
func (s *Server) downloadMedia(c *gin.Context) {
	post, ok := s.findPost(c)
	if !ok {
		return
	}

	mediaURL := firstMediaURL(post.MediaJSON)
	if mediaURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "post has no media"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, mediaURL, nil)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "invalid media url"})
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "media fetch failed"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadGateway, gin.H{"error": "media fetch failed"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, nil)
}

func (s *Server) listAccounts(c *gin.Context) {
	platform := c.DefaultQuery("platform", domain.PlatformX)
	enabledOnly := c.DefaultQuery("enabled_only", "true") != "false"

	accounts, err := s.accounts.List(c.Request.Context(), platform, enabledOnly)
	if err != nil {
		s.internalError(c, "list accounts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (s *Server) findPost(c *gin.Context) (*domain.Post, bool) {
	post, err := s.posts.GetByPostID(c.Request.Context(), c.Param("post_id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return nil, false
	}
	if err != nil {
		s.internalError(c, "get post", err)
		return nil, false
	}
	return post, true
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error(op+" failed", "error", err, "trace_id", c.GetString(traceIDKey))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// firstMediaURL tolerates both media shapes seen in stored records:
// a list of URL strings and a list of {url, type} objects.
func firstMediaURL(mediaJSON string) string {
	var entries []any
	if err := json.Unmarshal([]byte(mediaJSON), &entries); err != nil {
		return ""
	}
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if u, ok := v["url"].(string); ok && u != "" {
				return u
			}
		}
	}
	return ""
}
