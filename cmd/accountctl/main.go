// accountctl imports tracked accounts from a CSV file into the
// database. Expected header: platform,handle,display_name,category,enabled.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"social_watch/internal/config"
	"social_watch/internal/domain"
	"social_watch/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("csv", "accounts.csv", "path to accounts CSV")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sqlx.Connect("sqlite3", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := sqlite.Init(ctx, db); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	imported, err := importAccounts(ctx, db, *csvPath)
	if err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
	logger.Info("accounts imported", "count", imported, "csv", *csvPath)
}

func importAccounts(ctx context.Context, db *sqlx.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"platform", "handle"} {
		if _, ok := cols[required]; !ok {
			return 0, fmt.Errorf("csv missing required column %q", required)
		}
	}

	store := sqlite.NewAccountStore(db)
	imported := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		account := &domain.Account{
			Platform:    field(record, cols, "platform"),
			Handle:      field(record, cols, "handle"),
			DisplayName: field(record, cols, "display_name"),
			Category:    domain.NormalizeCategory(field(record, cols, "category")),
			Enabled:     parseBoolish(field(record, cols, "enabled"), true),
		}
		if account.Platform == "" || account.Handle == "" {
			continue
		}
		if err := store.Upsert(ctx, account); err != nil {
			return imported, fmt.Errorf("upsert %s/%s: %w", account.Platform, account.Handle, err)
		}
		imported++
	}

	return imported, nil
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseBoolish interprets the boolean-ish values seen in account CSVs.
// Unrecognized values fall back to the default rather than silently
// disabling an account.
func parseBoolish(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
