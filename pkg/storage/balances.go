package storage

import (
	"context"

	"github.com/nexpass/gocardless-sync/pkg/models"
)

// BalanceStore defines the interface for upserting balance documents by
// their natural key (userId, accountId, balanceType). At most one document
// exists per tuple at any time.
type BalanceStore interface {
	// FindBalanceDocument returns the id of the balance document matching
	// the natural key, or "" when none exists. encAccountID is the
	// deterministically-encrypted account id.
	FindBalanceDocument(ctx context.Context, userID, encAccountID, balanceType string) (string, error)

	// InsertBalance stores a new balance document, setting CreatedAt once.
	InsertBalance(ctx context.Context, rec models.BalanceRecord) error

	// UpdateBalance patches an existing balance document. Only the amount,
	// currency, reference date and UpdatedAt are ever touched.
	UpdateBalance(ctx context.Context, id string, patch models.BalancePatch) error
}
