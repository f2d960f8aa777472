package domain

import "time"

// AccountOutcome records what happened to a single account during an
// ingestion run.
type AccountOutcome struct {
	AccountID int64
	Handle    string
	Fetched   int
	Inserted  int
	Skipped   int
	Failed    bool
}

// RunStats holds statistics about one ingestion run.
type RunStats struct {
	Platform string
	Accounts []AccountOutcome
	Fetched  int
	Inserted int
	Skipped  int
	Failed   int
	Duration time.Duration
}
