package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"social_watch/internal/domain"
)

type AccountStore struct {
	db *sqlx.DB
}

func NewAccountStore(db *sqlx.DB) *AccountStore {
	return &AccountStore{db: db}
}

// ListEnabled returns the enabled accounts for a platform, ordered by
// handle so ingestion runs are reproducible.
func (s *AccountStore) ListEnabled(ctx context.Context, platform string) ([]domain.Account, error) {
	query := `
		SELECT id, platform, handle, display_name, category, is_enabled
		FROM accounts
		WHERE platform = ? AND is_enabled = 1
		ORDER BY handle`

	var accounts []domain.Account
	err := s.db.SelectContext(ctx, &accounts, query, platform)
	return accounts, err
}

func (s *AccountStore) List(ctx context.Context, platform string, enabledOnly bool) ([]domain.Account, error) {
	query := `
		SELECT id, platform, handle, display_name, category, is_enabled
		FROM accounts
		WHERE platform = ?`
	if enabledOnly {
		query += ` AND is_enabled = 1`
	}
	query += ` ORDER BY category, handle`

	var accounts []domain.Account
	err := s.db.SelectContext(ctx, &accounts, query, platform)
	return accounts, err
}

// Upsert inserts an account or refreshes its mutable columns, keyed on
// (platform, handle).
func (s *AccountStore) Upsert(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (platform, handle, display_name, category, is_enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (platform, handle) DO UPDATE SET
			display_name = excluded.display_name,
			category = excluded.category,
			is_enabled = excluded.is_enabled`

	_, err := executor(ctx, s.db).ExecContext(ctx, query,
		account.Platform,
		account.Handle,
		account.DisplayName,
		account.Category,
		account.Enabled,
	)
	return err
}
