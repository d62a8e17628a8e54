package storage

import (
	"context"

	"github.com/nexpass/gocardless-sync/pkg/models"
)

// TransactionReader defines the interface for reading persisted transactions.
// All queries run on plaintext or deterministically-encrypted fields; the
// store cannot filter on randomly-encrypted fields.
type TransactionReader interface {
	// TransactionExists reports whether a transaction document with the
	// given id has already been synced.
	TransactionExists(ctx context.Context, id string) (bool, error)

	// LastBookingDate returns the most recent booking date (falling back to
	// the value date) among a user's transactions for one account, or ""
	// when none exist. encAccountID is the deterministically-encrypted
	// account id. Errors degrade to "" so a fresh account syncs from
	// scratch instead of failing.
	LastBookingDate(ctx context.Context, userID, encAccountID string) string

	// RecentTransactions retrieves up to limit recent transaction records
	// for a user. Best-effort hint source for the categorizer: any failure
	// yields an empty slice, never an error.
	RecentTransactions(ctx context.Context, userID string, limit int) []models.TransactionRecord
}

// TransactionWriter defines the interface for persisting transactions.
type TransactionWriter interface {
	// InsertTransaction stores a new transaction document. The record's id
	// is its idempotency key: inserting an id that already exists returns
	// ErrAlreadyExists. Transactions are immutable after insert.
	InsertTransaction(ctx context.Context, rec models.TransactionRecord) error
}

// TransactionStore combines the reader and writer interfaces.
type TransactionStore interface {
	TransactionReader
	TransactionWriter
}
