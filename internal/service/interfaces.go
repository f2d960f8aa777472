package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"social_watch/internal/domain"
)

type AccountStore interface {
	ListEnabled(ctx context.Context, platform string) ([]domain.Account, error)
}

type PostStore interface {
	Insert(ctx context.Context, post *domain.Post) (bool, error)
}

// Scraper fetches the raw stdout of the external scraping tool for one
// account handle.
type Scraper interface {
	Fetch(ctx context.Context, handle string, maxItems int) (string, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, post *domain.Post) error
	Close() error
}
