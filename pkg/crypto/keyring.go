package crypto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexpass/gocardless-sync/pkg/logging"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/nexpass/gocardless-sync/pkg/storage"
)

// DataKeyAlias is the fixed alias the data encryption key is stored under
// in the key vault.
const DataKeyAlias = "nexpass-data-key"

// Keyring resolves the data encryption key: it looks the wrapped key up by
// alias in the key vault, creates it on first use, and caches the resulting
// Fieldcipher for the remainder of the process lifetime. A fresh process
// (cold start) rebuilds the cache.
type Keyring struct {
	vault    storage.KeyVaultStore
	provider MasterKeyProvider

	cipher *Fieldcipher
}

// NewKeyring creates a Keyring over a key vault and a master key provider.
func NewKeyring(vault storage.KeyVaultStore, provider MasterKeyProvider) *Keyring {
	return &Keyring{vault: vault, provider: provider}
}

// Fieldcipher returns the process-wide Fieldcipher, resolving the data key
// on first call.
func (k *Keyring) Fieldcipher(ctx context.Context) (*Fieldcipher, error) {
	if k.cipher != nil {
		return k.cipher, nil
	}

	logger := logging.FromContext(ctx)

	dek, err := k.resolveDataKey(ctx)
	if err != nil {
		return nil, err
	}

	cipher, err := NewFieldcipher(dek)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("alias", DataKeyAlias).Msg("data encryption key ready")
	k.cipher = cipher
	return cipher, nil
}

func (k *Keyring) resolveDataKey(ctx context.Context) ([]byte, error) {
	key, err := k.vault.FindDataKey(ctx, DataKeyAlias)
	if err == nil {
		return k.provider.UnwrapDataKey(ctx, key.WrappedKey)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up data key: %w", err)
	}

	plaintext, wrapped, err := k.provider.GenerateDataKey(ctx)
	if err != nil {
		return nil, err
	}

	record := models.DataKey{
		KeyAltName: DataKeyAlias,
		WrappedKey: wrapped,
		Provider:   k.provider.Name(),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := k.vault.CreateDataKey(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist data key: %w", err)
	}

	logger := logging.FromContext(ctx)
	logger.Info().Str("alias", DataKeyAlias).Str("provider", k.provider.Name()).Msg("created new data encryption key")
	return plaintext, nil
}
