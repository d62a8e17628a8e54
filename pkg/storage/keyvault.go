package storage

import (
	"context"

	"github.com/nexpass/gocardless-sync/pkg/models"
)

// KeyVaultStore defines the interface for the key vault table holding
// wrapped data encryption keys, looked up by a fixed alias.
type KeyVaultStore interface {
	// FindDataKey retrieves the wrapped data key with the given alias.
	// Returns ErrNotFound when no key exists yet.
	FindDataKey(ctx context.Context, keyAltName string) (*models.DataKey, error)

	// CreateDataKey stores a freshly wrapped data key under its alias.
	CreateDataKey(ctx context.Context, key models.DataKey) error
}
