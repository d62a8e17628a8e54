// Package mapping transforms remote GoCardless payloads into the persisted
// document shapes, applying the field length caps and encryption class each
// field requires.
package mapping

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nexpass/gocardless-sync/pkg/crypto"
	"github.com/nexpass/gocardless-sync/pkg/models"
)

const (
	maxDocumentIDLen   = 36
	maxCurrencyLen     = 3
	maxDateLen         = 10
	maxDescriptionLen  = 500
	maxCounterpartyLen = 255
	maxRawLen          = 10000
)

var docIDSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// DocumentID computes the idempotency key for a transaction document.
//
// The provider transaction id, sanitized and truncated, is stable across
// runs for the same transaction. When no provider id exists the composite
// fallback embeds the current epoch and is inherently non-idempotent; an
// accepted gap, since such transactions carry nothing better to key on.
func DocumentID(providerTxID, accountID, bookingDate string, now time.Time) string {
	raw := providerTxID
	if raw == "" {
		raw = fmt.Sprintf("%s_%s_%d", accountID, bookingDate, now.Unix())
	}

	clean := truncate(docIDSanitizer.ReplaceAllString(raw, "_"), maxDocumentIDLen)
	if clean == "" {
		return fmt.Sprintf("tx_%d", now.Unix())
	}
	return clean
}

// BalanceDocumentID computes the generated id a fresh balance document is
// inserted under. Lookups always go through the natural key, never this id.
func BalanceDocumentID(accountID, balanceType string) string {
	return truncate(accountID+"_"+balanceType, maxDocumentIDLen)
}

// ToTransactionRecord builds the persisted, field-encrypted form of a
// remote transaction. Category must already be assigned: categorization
// works on plaintext and has to happen before encryption.
func ToTransactionRecord(cipher *crypto.Fieldcipher, tx *models.Transaction, userID, accountID, docID, category string, now time.Time) models.TransactionRecord {
	amount := tx.TransactionAmount.Amount
	if amount == "" {
		amount = "0"
	}
	currency := tx.TransactionAmount.Currency
	if currency == "" {
		currency = "EUR"
	}

	raw, err := json.Marshal(tx)
	if err != nil {
		raw = nil
	}

	ts := now.UTC().Format(time.RFC3339)
	return models.TransactionRecord{
		ID:          docID,
		UserID:      userID,
		Category:    category,
		Exclude:     false,
		BookingDate: truncate(tx.BookingDate, maxDateLen),

		AccountID:     cipher.EncryptDeterministic(accountID),
		TransactionID: cipher.EncryptDeterministic(tx.ProviderID()),

		Amount:       cipher.EncryptRandom(amount),
		Currency:     cipher.EncryptRandom(truncate(strings.ToUpper(currency), maxCurrencyLen)),
		ValueDate:    cipher.EncryptRandom(truncate(tx.ValueDate, maxDateLen)),
		Description:  cipher.EncryptRandom(truncate(tx.Description(), maxDescriptionLen)),
		Counterparty: cipher.EncryptRandom(truncate(tx.Counterparty(), maxCounterpartyLen)),
		Raw:          cipher.EncryptRandom(truncate(string(raw), maxRawLen)),

		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// ToBalanceRecord builds the persisted, field-encrypted form of a remote
// balance.
func ToBalanceRecord(cipher *crypto.Fieldcipher, balance *models.Balance, userID, accountID string, now time.Time) models.BalanceRecord {
	balanceType := balance.BalanceType
	if balanceType == "" {
		balanceType = "expected"
	}
	referenceDate := balance.ReferenceDate
	if referenceDate == "" {
		referenceDate = now.UTC().Format("2006-01-02")
	}
	amount := balance.BalanceAmount.Amount
	if amount == "" {
		amount = "0"
	}
	currency := balance.BalanceAmount.Currency
	if currency == "" {
		currency = "EUR"
	}

	ts := now.UTC().Format(time.RFC3339)
	return models.BalanceRecord{
		ID:            BalanceDocumentID(accountID, balanceType),
		UserID:        userID,
		BalanceType:   balanceType,
		ReferenceDate: referenceDate,

		AccountID: cipher.EncryptDeterministic(accountID),
		Amount:    cipher.EncryptRandom(amount),
		Currency:  cipher.EncryptRandom(truncate(strings.ToUpper(currency), maxCurrencyLen)),

		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// ToBalancePatch builds the update applied to an existing balance document.
func ToBalancePatch(cipher *crypto.Fieldcipher, balance *models.Balance, now time.Time) models.BalancePatch {
	rec := ToBalanceRecord(cipher, balance, "", "", now)
	return models.BalancePatch{
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		ReferenceDate: rec.ReferenceDate,
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
