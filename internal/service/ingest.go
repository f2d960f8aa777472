package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"social_watch/internal/config"
	"social_watch/internal/domain"
	"social_watch/internal/normalize"
	"social_watch/internal/scrape"
)

// IngestService runs one ingestion pass over the enabled accounts of a
// platform. Accounts are processed strictly in sequence; each account
// commits on its own, so a failure on a later account never rolls back
// work already committed for an earlier one.
type IngestService struct {
	accounts  AccountStore
	posts     PostStore
	scraper   Scraper
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	config    config.IngestConfig
}

func NewIngestService(
	accounts AccountStore,
	posts PostStore,
	scraper Scraper,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.IngestConfig,
) *IngestService {
	return &IngestService{
		accounts:  accounts,
		posts:     posts,
		scraper:   scraper,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("platform", cfg.Platform),
		config:    cfg,
	}
}

// Run executes a single ingestion pass. Per-account failures are
// logged and skipped; only environment-level failures (the account
// listing itself) abort the run.
func (s *IngestService) Run(ctx context.Context) (*domain.RunStats, error) {
	startTime := time.Now()
	s.logger.Info("starting ingestion run",
		"max_items_per_account", s.config.MaxItemsPerAccount,
	)

	accounts, err := s.accounts.ListEnabled(ctx, s.config.Platform)
	if err != nil {
		return nil, fmt.Errorf("list enabled accounts: %w", err)
	}

	stats := &domain.RunStats{Platform: s.config.Platform}
	for i := range accounts {
		outcome := s.processAccount(ctx, accounts[i])
		stats.Accounts = append(stats.Accounts, outcome)
		stats.Fetched += outcome.Fetched
		stats.Inserted += outcome.Inserted
		stats.Skipped += outcome.Skipped
		if outcome.Failed {
			stats.Failed++
		}
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("ingestion run completed",
		"accounts", len(accounts),
		"fetched", stats.Fetched,
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *IngestService) processAccount(ctx context.Context, account domain.Account) domain.AccountOutcome {
	outcome := domain.AccountOutcome{
		AccountID: account.ID,
		Handle:    account.Handle,
	}

	raw, err := s.scraper.Fetch(ctx, account.Handle, s.config.MaxItemsPerAccount)
	if err != nil {
		s.logger.Error("scraper failed, skipping account",
			"handle", account.Handle,
			"error", err,
		)
		outcome.Failed = true
		return outcome
	}

	items := scrape.Items(raw)
	outcome.Fetched = len(items)
	if len(items) == 0 {
		s.logger.Info("no items for account", "handle", account.Handle)
		return outcome
	}

	var fresh []*domain.Post
	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, item := range items {
			post, ok := normalize.Post(item, account, now)
			if !ok {
				outcome.Skipped++
				continue
			}
			inserted, err := s.posts.Insert(txCtx, post)
			if err != nil {
				return fmt.Errorf("insert post %s: %w", post.PostID, err)
			}
			if inserted {
				outcome.Inserted++
				fresh = append(fresh, post)
			} else {
				outcome.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		// The whole account rolled back; nothing below survived.
		s.logger.Error("account commit failed, skipping account",
			"handle", account.Handle,
			"error", err,
		)
		outcome.Failed = true
		outcome.Inserted = 0
		outcome.Skipped = 0
		return outcome
	}

	s.logger.Info("account committed",
		"handle", account.Handle,
		"fetched", outcome.Fetched,
		"inserted", outcome.Inserted,
		"skipped", outcome.Skipped,
	)

	if s.publisher != nil {
		for _, post := range fresh {
			if err := s.publisher.Publish(ctx, post); err != nil {
				s.logger.Error("publish failed",
					"handle", account.Handle,
					"post_id", post.PostID,
					"error", err,
				)
			}
		}
	}

	return outcome
}
