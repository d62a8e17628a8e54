package storage

import (
	"context"

	"github.com/nexpass/gocardless-sync/pkg/models"
)

// AccountStore defines the interface for reading linked bank accounts.
// Accounts are read-only input to the sync pipeline.
type AccountStore interface {
	// ActiveAccounts retrieves the active accounts, capped at the given
	// limit. When the status field cannot be filtered server-side the
	// implementation fetches a capped batch and filters in memory.
	ActiveAccounts(ctx context.Context, limit int) ([]models.Account, error)
}

// RequisitionStore defines the interface for reading requisition documents.
type RequisitionStore interface {
	// UserRequisitions retrieves the requisitions linked to a user.
	UserRequisitions(ctx context.Context, userID string) ([]models.Requisition, error)
}
