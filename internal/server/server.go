// Package server exposes the read-mostly dashboard API over the
// ingested posts: listing with like counts, like/unlike actions, a
// media download proxy and an optional single-password gate.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"social_watch/internal/config"
	"social_watch/internal/domain"
	"social_watch/internal/storage/sqlite"
)

type PostReader interface {
	List(ctx context.Context, filter sqlite.PostFilter) ([]domain.Post, error)
	Count(ctx context.Context, filter sqlite.PostFilter) (int64, error)
	GetByPostID(ctx context.Context, postID string) (*domain.Post, error)
}

type AccountReader interface {
	List(ctx context.Context, platform string, enabledOnly bool) ([]domain.Account, error)
}

type LikeCounter interface {
	Like(ctx context.Context, postID string) (int64, error)
	Unlike(ctx context.Context, postID string) (int64, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	cfg      config.ServerConfig
	posts    PostReader
	accounts AccountReader
	likes    LikeCounter
	db       Pinger
	client   *http.Client
	logger   *slog.Logger
	router   *gin.Engine
}

func New(
	cfg config.ServerConfig,
	posts PostReader,
	accounts AccountReader,
	likes LikeCounter,
	db Pinger,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:      cfg,
		posts:    posts,
		accounts: accounts,
		likes:    likes,
		db:       db,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With("component", "server"),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), TraceID(), RequestLogger(s.logger))

	router.GET("/health", s.health)

	api := router.Group("/api")
	if s.cfg.Password != "" {
		api.Use(PasswordGate(s.cfg.Password))
	}
	api.GET("/posts", s.listPosts)
	api.GET("/posts/:post_id", s.getPost)
	api.POST("/posts/:post_id/like", s.likePost)
	api.POST("/posts/:post_id/unlike", s.unlikePost)
	api.GET("/posts/:post_id/download", s.downloadMedia)
	api.GET("/accounts", s.listAccounts)

	return router
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
