// Package crypto implements field-level encryption for document fields.
//
// Two ciphertext classes exist: deterministic tokens, where the same
// plaintext and key always produce the same token so the store can run
// equality queries without decrypting, and random tokens, where the same
// plaintext never repeats. Join/lookup fields (accountId, transactionId)
// use deterministic tokens; everything else sensitive uses random tokens.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	detPrefix = "det:v1:"
	rndPrefix = "rnd:v1:"

	nonceSize = 12
	keySize   = 32
)

// Fieldcipher encrypts and decrypts individual document fields with a data
// encryption key. Construct it once per process and pass it by reference.
type Fieldcipher struct {
	aead     cipher.AEAD
	nonceKey []byte
}

// NewFieldcipher creates a Fieldcipher from a 32-byte data encryption key.
func NewFieldcipher(dek []byte) (*Fieldcipher, error) {
	if len(dek) != keySize {
		return nil, fmt.Errorf("data encryption key must be %d bytes, got %d", keySize, len(dek))
	}

	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	// Separate key for synthetic nonces so deterministic nonce derivation
	// never reuses the encryption key directly.
	mac := hmac.New(sha256.New, dek)
	mac.Write([]byte("fieldcipher/deterministic-nonce"))

	return &Fieldcipher{aead: aead, nonceKey: mac.Sum(nil)}, nil
}

// EncryptDeterministic encrypts a value so that equal plaintexts yield equal
// tokens. Empty input yields an empty token; callers omit the field.
func (c *Fieldcipher) EncryptDeterministic(value string) string {
	if value == "" {
		return ""
	}

	mac := hmac.New(sha256.New, c.nonceKey)
	mac.Write([]byte(value))
	nonce := mac.Sum(nil)[:nonceSize]

	sealed := c.aead.Seal(nil, nonce, []byte(value), nil)
	return detPrefix + base64.StdEncoding.EncodeToString(append(nonce, sealed...))
}

// EncryptRandom encrypts a value with a fresh random nonce, so equal
// plaintexts yield different tokens on every call. Empty input yields an
// empty token.
func (c *Fieldcipher) EncryptRandom(value string) string {
	if value == "" {
		return ""
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		// crypto/rand failing means the process is unusable anyway.
		panic(fmt.Sprintf("failed to read random nonce: %v", err))
	}

	sealed := c.aead.Seal(nil, nonce, []byte(value), nil)
	return rndPrefix + base64.StdEncoding.EncodeToString(append(nonce, sealed...))
}

// Decrypt reverses EncryptDeterministic and EncryptRandom. Malformed or
// foreign input is returned unchanged so callers can treat maybe-encrypted
// data uniformly during migrations; decryption never fails hard.
func (c *Fieldcipher) Decrypt(token string) string {
	var raw string
	switch {
	case strings.HasPrefix(token, detPrefix):
		raw = token[len(detPrefix):]
	case strings.HasPrefix(token, rndPrefix):
		raw = token[len(rndPrefix):]
	default:
		return token
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(data) <= nonceSize {
		return token
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return token
	}
	return string(plaintext)
}
