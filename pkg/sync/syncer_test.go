package sync

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexpass/gocardless-sync/pkg/categorize"
	"github.com/nexpass/gocardless-sync/pkg/crypto"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/nexpass/gocardless-sync/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory storage.SyncStore.
type fakeStore struct {
	accounts     []models.Account
	accountsErr  error
	transactions map[string]models.TransactionRecord
	balances     map[string]models.BalanceRecord
	updates      map[string]models.BalancePatch
	lastDates    map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[string]models.TransactionRecord),
		balances:     make(map[string]models.BalanceRecord),
		updates:      make(map[string]models.BalancePatch),
		lastDates:    make(map[string]string),
	}
}

func (f *fakeStore) ActiveAccounts(_ context.Context, limit int) ([]models.Account, error) {
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	if len(f.accounts) > limit {
		return f.accounts[:limit], nil
	}
	return f.accounts, nil
}

func (f *fakeStore) TransactionExists(_ context.Context, id string) (bool, error) {
	_, ok := f.transactions[id]
	return ok, nil
}

func (f *fakeStore) LastBookingDate(_ context.Context, userID, encAccountID string) string {
	return f.lastDates[userID+"/"+encAccountID]
}

func (f *fakeStore) RecentTransactions(_ context.Context, _ string, _ int) []models.TransactionRecord {
	records := make([]models.TransactionRecord, 0, len(f.transactions))
	for _, rec := range f.transactions {
		records = append(records, rec)
	}
	return records
}

func (f *fakeStore) InsertTransaction(_ context.Context, rec models.TransactionRecord) error {
	if _, ok := f.transactions[rec.ID]; ok {
		return storage.ErrAlreadyExists
	}
	f.transactions[rec.ID] = rec
	return nil
}

func (f *fakeStore) FindBalanceDocument(_ context.Context, userID, encAccountID, balanceType string) (string, error) {
	for _, rec := range f.balances {
		if rec.UserID == userID && rec.AccountID == encAccountID && rec.BalanceType == balanceType {
			return rec.ID, nil
		}
	}
	return "", nil
}

func (f *fakeStore) InsertBalance(_ context.Context, rec models.BalanceRecord) error {
	f.balances[rec.ID] = rec
	return nil
}

func (f *fakeStore) UpdateBalance(_ context.Context, id string, patch models.BalancePatch) error {
	f.updates[id] = patch
	return nil
}

// fakeRemote serves canned transactions and balances per account.
type fakeRemote struct {
	transactions map[string][]models.Transaction
	balances     map[string][]models.Balance
	errs         map[string]error
	dateFroms    []string
}

func (f *fakeRemote) GetTransactions(_ context.Context, accountID, dateFrom string) ([]models.Transaction, error) {
	f.dateFroms = append(f.dateFroms, dateFrom)
	if err := f.errs[accountID]; err != nil {
		return nil, err
	}
	return f.transactions[accountID], nil
}

func (f *fakeRemote) GetBalances(_ context.Context, accountID string) ([]models.Balance, error) {
	return f.balances[accountID], nil
}

func newTestSyncer(t *testing.T, store *fakeStore, remote *fakeRemote) *Syncer {
	t.Helper()
	cipher, err := crypto.NewFieldcipher(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)

	s := New(store, remote, cipher, categorize.New(nil))
	s.sleep = func(time.Duration) {}
	return s
}

func account(id, userID string) models.Account {
	return models.Account{AccountID: id, UserID: userID, Status: models.ACTIVE}
}

func tx(id, bookingDate, amount string) models.Transaction {
	return models.Transaction{
		TransactionID:     id,
		BookingDate:       bookingDate,
		TransactionAmount: models.Amount{Amount: amount, Currency: "EUR"},
	}
}

func TestRunSyncsTransactionsAndBalances(t *testing.T) {
	store := newFakeStore()
	store.accounts = []models.Account{account("ACC-1", "user-1")}

	remote := &fakeRemote{
		transactions: map[string][]models.Transaction{
			"ACC-1": {tx("TX-1", "2025-10-08", "-4.50"), tx("TX-2", "2025-10-09", "-10.00")},
		},
		balances: map[string][]models.Balance{
			"ACC-1": {{BalanceType: "closingBooked", ReferenceDate: "2025-10-09", BalanceAmount: models.Amount{Amount: "100.00", Currency: "EUR"}}},
		},
	}

	result, err := newTestSyncer(t, store, remote).Run(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TransactionsSynced)
	assert.Equal(t, 1, result.BalancesSynced)
	assert.Equal(t, 1, result.AccountsProcessed)
	assert.Equal(t, 0, result.AccountsFailed)
	assert.Len(t, store.transactions, 2)
	assert.Len(t, store.balances, 1)
}

func TestRunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.accounts = []models.Account{account("ACC-1", "user-1")}

	remote := &fakeRemote{
		transactions: map[string][]models.Transaction{
			"ACC-1": {tx("TX-1", "2025-10-08", "-4.50")},
		},
	}

	syncer := newTestSyncer(t, store, remote)

	first, err := syncer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.TransactionsSynced)

	// Second run with identical remote data inserts nothing new.
	second, err := syncer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.TransactionsSynced)
	assert.True(t, second.Success)
	assert.Len(t, store.transactions, 1)
}

func TestRunUpsertsBalancesByNaturalKey(t *testing.T) {
	store := newFakeStore()
	store.accounts = []models.Account{account("ACC-1", "user-1")}

	remote := &fakeRemote{
		balances: map[string][]models.Balance{
			"ACC-1": {{BalanceType: "expected", ReferenceDate: "2025-10-08", BalanceAmount: models.Amount{Amount: "100.00", Currency: "EUR"}}},
		},
	}

	syncer := newTestSyncer(t, store, remote)

	_, err := syncer.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.balances, 1)
	assert.Empty(t, store.updates)

	// The next observation updates the existing document instead of
	// inserting a second one for the same tuple.
	remote.balances["ACC-1"][0].BalanceAmount.Amount = "250.00"
	_, err = syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.balances, 1)
	require.Len(t, store.updates, 1)
	patch := store.updates["ACC-1_expected"]
	assert.Equal(t, "250.00", syncer.Cipher.Decrypt(patch.Amount))
}

func TestRunUsesLastBookingDate(t *testing.T) {
	store := newFakeStore()
	store.accounts = []models.Account{account("ACC-1", "user-1")}
	remote := &fakeRemote{}

	syncer := newTestSyncer(t, store, remote)
	encAccountID := syncer.Cipher.EncryptDeterministic("ACC-1")
	store.lastDates["user-1/"+encAccountID] = "2025-10-01"

	_, err := syncer.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, remote.dateFroms, 1)
	assert.Equal(t, "2025-10-01", remote.dateFroms[0])
}

func TestRunCapsTransactionsPerAccount(t *testing.T) {
	store := newFakeStore()
	store.accounts = []models.Account{account("ACC-1", "user-1")}

	var many []models.Transaction
	for i := 0; i < 10; i++ {
		many = append(many, tx("TX-"+string(rune('A'+i)), "2025-10-08", "-1.00"))
	}
	remote := &fakeRemote{transactions: map[string][]models.Transaction{"ACC-1": many}}

	syncer := newTestSyncer(t, store, remote)
	syncer.MaxTxPerAccount = 3

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.TransactionsSynced)
	assert.Len(t, store.transactions, 3)
}

func TestRunIsolatesAccountFailures(t *testing.T) {
	store := newFakeStore()
	store.accounts = []models.Account{
		account("ACC-1", "user-1"),
		account("ACC-2", "user-1"),
	}

	remote := &fakeRemote{
		transactions: map[string][]models.Transaction{
			"ACC-2": {tx("TX-1", "2025-10-08", "-4.50")},
		},
		errs: map[string]error{"ACC-1": errors.New("connection reset")},
	}

	result, err := newTestSyncer(t, store, remote).Run(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.AccountsProcessed)
	assert.Equal(t, 1, result.AccountsFailed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "ACC-1", result.Failures[0].AccountID)
	assert.Contains(t, result.Failures[0].Error, "connection reset")

	// The healthy account still synced.
	assert.Equal(t, 1, result.TransactionsSynced)
}

func TestRunFailsWhenAccountsUnavailable(t *testing.T) {
	store := newFakeStore()
	store.accountsErr = errors.New("store unavailable")

	_, err := newTestSyncer(t, store, &fakeRemote{}).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "active accounts")
}

func TestRunStoresEncryptedFields(t *testing.T) {
	store := newFakeStore()
	store.accounts = []models.Account{account("ACC-1", "user-1")}

	remote := &fakeRemote{
		transactions: map[string][]models.Transaction{
			"ACC-1": {{
				TransactionID:                     "TX-1",
				BookingDate:                       "2025-10-08",
				TransactionAmount:                 models.Amount{Amount: "-4.50", Currency: "EUR"},
				CreditorName:                      "Starbucks",
				RemittanceInformationUnstructured: "Starbucks Coffee Downtown",
			}},
		},
	}

	syncer := newTestSyncer(t, store, remote)
	_, err := syncer.Run(context.Background())
	require.NoError(t, err)

	rec, ok := store.transactions["TX-1"]
	require.True(t, ok)

	// Plaintext stays queryable; sensitive fields never appear in the clear.
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, "Restaurants", rec.Category)
	assert.Equal(t, "2025-10-08", rec.BookingDate)
	assert.NotEqual(t, "ACC-1", rec.AccountID)
	assert.NotEqual(t, "-4.50", rec.Amount)
	assert.Equal(t, "-4.50", syncer.Cipher.Decrypt(rec.Amount))
	assert.Equal(t, "Starbucks Coffee Downtown", syncer.Cipher.Decrypt(rec.Description))
}
