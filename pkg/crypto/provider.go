package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// MasterKeyProvider wraps and unwraps data encryption keys with a master
// key held outside the document store.
type MasterKeyProvider interface {
	// Name identifies the provider in key vault records.
	Name() string

	// GenerateDataKey returns a fresh plaintext DEK and its wrapped form.
	GenerateDataKey(ctx context.Context) (plaintext, wrapped []byte, err error)

	// UnwrapDataKey recovers the plaintext DEK from its wrapped form.
	UnwrapDataKey(ctx context.Context, wrapped []byte) ([]byte, error)
}

// KMSAPI defines the subset of the KMS client used by KMSProvider.
type KMSAPI interface {
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSProvider wraps data keys with an AWS KMS customer master key.
type KMSProvider struct {
	client KMSAPI
	keyID  string
}

// NewKMSProvider creates a KMSProvider for the given key id or alias ARN.
func NewKMSProvider(client KMSAPI, keyID string) *KMSProvider {
	return &KMSProvider{client: client, keyID: keyID}
}

func (p *KMSProvider) Name() string { return "aws-kms" }

func (p *KMSProvider) GenerateDataKey(ctx context.Context) ([]byte, []byte, error) {
	out, err := p.client.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(p.keyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	return out.Plaintext, out.CiphertextBlob, nil
}

func (p *KMSProvider) UnwrapDataKey(ctx context.Context, wrapped []byte) ([]byte, error) {
	out, err := p.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:          aws.String(p.keyID),
		CiphertextBlob: wrapped,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap data key: %w", err)
	}
	return out.Plaintext, nil
}

// LocalProvider derives a master key deterministically (one-way hash) from
// a supplied secret and wraps data keys with it using AES-GCM. Intended for
// deployments without a KMS.
type LocalProvider struct {
	aead cipher.AEAD
}

// NewLocalProvider creates a LocalProvider from a master secret.
func NewLocalProvider(secret string) (*LocalProvider, error) {
	if secret == "" {
		return nil, fmt.Errorf("master key secret is empty")
	}

	masterKey := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(masterKey[:])
	if err != nil {
		return nil, fmt.Errorf("failed to initialize master key cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize master key GCM: %w", err)
	}
	return &LocalProvider{aead: aead}, nil
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) GenerateDataKey(ctx context.Context) ([]byte, []byte, error) {
	plaintext := make([]byte, keySize)
	if _, err := rand.Read(plaintext); err != nil {
		return nil, nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate wrap nonce: %w", err)
	}

	wrapped := append(nonce, p.aead.Seal(nil, nonce, plaintext, nil)...)
	return plaintext, wrapped, nil
}

func (p *LocalProvider) UnwrapDataKey(_ context.Context, wrapped []byte) ([]byte, error) {
	if len(wrapped) <= nonceSize {
		return nil, fmt.Errorf("wrapped data key too short")
	}
	plaintext, err := p.aead.Open(nil, wrapped[:nonceSize], wrapped[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap data key: %w", err)
	}
	return plaintext, nil
}
