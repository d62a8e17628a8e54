package mapping

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nexpass/gocardless-sync/pkg/crypto"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validDocID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func testCipher(t *testing.T) *crypto.Fieldcipher {
	t.Helper()
	cipher, err := crypto.NewFieldcipher(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return cipher
}

func TestDocumentID(t *testing.T) {
	now := time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC)

	t.Run("Provider ID Used Directly", func(t *testing.T) {
		id := DocumentID("TX-0001", "ACC-1", "2025-10-08", now)
		assert.Equal(t, "TX-0001", id)
	})

	t.Run("Provider ID Sanitized", func(t *testing.T) {
		id := DocumentID("TX/0001:A.B", "ACC-1", "2025-10-08", now)
		assert.Equal(t, "TX_0001_A_B", id)
	})

	t.Run("Provider ID Truncated To 36", func(t *testing.T) {
		id := DocumentID(strings.Repeat("a", 80), "ACC-1", "2025-10-08", now)
		assert.Len(t, id, 36)
	})

	t.Run("Stable For Same Provider ID", func(t *testing.T) {
		first := DocumentID("TX-0001", "ACC-1", "2025-10-08", now)
		second := DocumentID("TX-0001", "ACC-2", "2024-01-01", now.Add(time.Hour))
		assert.Equal(t, first, second)
	})

	t.Run("Fallback Composite", func(t *testing.T) {
		id := DocumentID("", "ACC-1", "2025-10-08", now)
		assert.LessOrEqual(t, len(id), 36)
		assert.Regexp(t, validDocID, id)
		assert.True(t, strings.HasPrefix(id, "ACC-1_2025-10-08_"))
	})

	t.Run("Timestamp Fallback", func(t *testing.T) {
		id := DocumentID("", "", "", now)
		assert.Regexp(t, validDocID, id)
		assert.NotEmpty(t, id)
	})
}

func TestBalanceDocumentID(t *testing.T) {
	assert.Equal(t, "ACC-1_closingBooked", BalanceDocumentID("ACC-1", "closingBooked"))

	long := BalanceDocumentID(strings.Repeat("a", 40), "expected")
	assert.Len(t, long, 36)
}

func TestToTransactionRecord(t *testing.T) {
	cipher := testCipher(t)
	now := time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC)

	tx := &models.Transaction{
		TransactionID:                     "TX-0001",
		BookingDate:                       "2025-10-08",
		ValueDate:                         "2025-10-09",
		TransactionAmount:                 models.Amount{Amount: "-42.50", Currency: "eur"},
		CreditorName:                      "Starbucks",
		RemittanceInformationUnstructured: "Starbucks Coffee Downtown",
	}

	rec := ToTransactionRecord(cipher, tx, "user-1", "ACC-1", "TX-0001", "Restaurants", now)

	t.Run("Plaintext Fields", func(t *testing.T) {
		assert.Equal(t, "TX-0001", rec.ID)
		assert.Equal(t, "user-1", rec.UserID)
		assert.Equal(t, "Restaurants", rec.Category)
		assert.False(t, rec.Exclude)
		assert.Equal(t, "2025-10-08", rec.BookingDate)
		assert.Equal(t, "2025-10-08T12:00:00Z", rec.CreatedAt)
		assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	})

	t.Run("Deterministic Fields Queryable", func(t *testing.T) {
		assert.Equal(t, cipher.EncryptDeterministic("ACC-1"), rec.AccountID)
		assert.Equal(t, cipher.EncryptDeterministic("TX-0001"), rec.TransactionID)
	})

	t.Run("Random Fields Round Trip", func(t *testing.T) {
		assert.Equal(t, "-42.50", cipher.Decrypt(rec.Amount))
		assert.Equal(t, "EUR", cipher.Decrypt(rec.Currency))
		assert.Equal(t, "2025-10-09", cipher.Decrypt(rec.ValueDate))
		assert.Equal(t, "Starbucks Coffee Downtown", cipher.Decrypt(rec.Description))
		assert.Equal(t, "Starbucks", cipher.Decrypt(rec.Counterparty))
		assert.Contains(t, cipher.Decrypt(rec.Raw), "TX-0001")
	})

	t.Run("Empty Fields Omitted", func(t *testing.T) {
		bare := ToTransactionRecord(cipher, &models.Transaction{InternalTransactionID: "INT-1"}, "user-1", "ACC-1", "INT-1", "Uncategorized", now)
		assert.Empty(t, bare.ValueDate)
		assert.Empty(t, bare.Description)
		assert.Empty(t, bare.Counterparty)
		// Amount defaults to "0" rather than being omitted.
		assert.Equal(t, "0", cipher.Decrypt(bare.Amount))
		assert.Equal(t, "EUR", cipher.Decrypt(bare.Currency))
	})

	t.Run("Length Caps Applied", func(t *testing.T) {
		long := &models.Transaction{
			TransactionID:                     "TX-0002",
			TransactionAmount:                 models.Amount{Amount: "1", Currency: "EURO"},
			RemittanceInformationUnstructured: strings.Repeat("d", 600),
			CreditorName:                      strings.Repeat("c", 300),
		}
		rec := ToTransactionRecord(cipher, long, "user-1", "ACC-1", "TX-0002", "Uncategorized", now)
		assert.Len(t, cipher.Decrypt(rec.Description), 500)
		assert.Len(t, cipher.Decrypt(rec.Counterparty), 255)
		assert.Equal(t, "EUR", cipher.Decrypt(rec.Currency))
	})
}

func TestToBalanceRecord(t *testing.T) {
	cipher := testCipher(t)
	now := time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC)

	balance := &models.Balance{
		BalanceType:   "closingBooked",
		ReferenceDate: "2025-10-08",
		BalanceAmount: models.Amount{Amount: "1337.00", Currency: "gbp"},
	}

	rec := ToBalanceRecord(cipher, balance, "user-1", "ACC-1", now)

	assert.Equal(t, "ACC-1_closingBooked", rec.ID)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, "closingBooked", rec.BalanceType)
	assert.Equal(t, "2025-10-08", rec.ReferenceDate)
	assert.Equal(t, cipher.EncryptDeterministic("ACC-1"), rec.AccountID)
	assert.Equal(t, "1337.00", cipher.Decrypt(rec.Amount))
	assert.Equal(t, "GBP", cipher.Decrypt(rec.Currency))

	t.Run("Defaults Applied", func(t *testing.T) {
		rec := ToBalanceRecord(cipher, &models.Balance{}, "user-1", "ACC-1", now)
		assert.Equal(t, "expected", rec.BalanceType)
		assert.Equal(t, "2025-10-08", rec.ReferenceDate)
		assert.Equal(t, "0", cipher.Decrypt(rec.Amount))
		assert.Equal(t, "EUR", cipher.Decrypt(rec.Currency))
	})
}

func TestToBalancePatch(t *testing.T) {
	cipher := testCipher(t)
	now := time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC)

	patch := ToBalancePatch(cipher, &models.Balance{
		BalanceType:   "expected",
		ReferenceDate: "2025-10-08",
		BalanceAmount: models.Amount{Amount: "900.00", Currency: "EUR"},
	}, now)

	assert.Equal(t, "900.00", cipher.Decrypt(patch.Amount))
	assert.Equal(t, "EUR", cipher.Decrypt(patch.Currency))
	assert.Equal(t, "2025-10-08", patch.ReferenceDate)
}
