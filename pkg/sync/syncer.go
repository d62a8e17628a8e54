// Package sync drives the end-to-end pipeline: enumerate active accounts,
// fetch remote transactions and balances, categorize, encrypt and persist.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nexpass/gocardless-sync/pkg/categorize"
	"github.com/nexpass/gocardless-sync/pkg/crypto"
	"github.com/nexpass/gocardless-sync/pkg/logging"
	"github.com/nexpass/gocardless-sync/pkg/mapping"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/nexpass/gocardless-sync/pkg/storage"
)

const (
	// MaxAccountsPerRun caps how many active accounts one invocation
	// processes. Kept from the source deployment's volume limits.
	MaxAccountsPerRun = 50

	// MaxTransactionsPerAccount caps how many transactions are persisted
	// per account per run.
	MaxTransactionsPerAccount = 50

	// categoryHintLimit bounds the recent-transactions read feeding the
	// categorizer's reuse tier.
	categoryHintLimit = 100
)

// RemoteClient is the banking-data provider surface the orchestrator needs.
type RemoteClient interface {
	GetTransactions(ctx context.Context, accountID, dateFrom string) ([]models.Transaction, error)
	GetBalances(ctx context.Context, accountID string) ([]models.Balance, error)
}

// Syncer runs one synchronization cycle. Execution is strictly sequential:
// one account at a time, with a fixed delay between accounts to respect the
// remote API's rate limits.
type Syncer struct {
	Store      storage.SyncStore
	Remote     RemoteClient
	Cipher     *crypto.Fieldcipher
	Classifier *categorize.Classifier

	MaxAccounts     int
	MaxTxPerAccount int
	AccountDelay    time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Syncer with the default volume caps and inter-account delay.
func New(store storage.SyncStore, remote RemoteClient, cipher *crypto.Fieldcipher, classifier *categorize.Classifier) *Syncer {
	return &Syncer{
		Store:           store,
		Remote:          remote,
		Cipher:          cipher,
		Classifier:      classifier,
		MaxAccounts:     MaxAccountsPerRun,
		MaxTxPerAccount: MaxTransactionsPerAccount,
		AccountDelay:    time.Second,
		now:             time.Now,
		sleep:           time.Sleep,
	}
}

// Run executes one sync cycle. A failure in one account is recorded and the
// loop continues; only a failure to enumerate accounts aborts the run.
func (s *Syncer) Run(ctx context.Context) (*models.SyncResult, error) {
	runID := uuid.New().String()
	logger := logging.FromContext(ctx).With().Str("run_id", runID).Logger()
	ctx = logging.WithContext(ctx, logger)

	accounts, err := s.Store.ActiveAccounts(ctx, s.MaxAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}
	logger.Info().Int("accounts", len(accounts)).Msg("starting sync")

	result := &models.SyncResult{AccountsProcessed: len(accounts)}
	for i, account := range accounts {
		accountLogger := logger.With().Str("account_id", account.AccountID).Logger()
		accountCtx := logging.WithContext(ctx, accountLogger)

		if err := s.syncAccount(accountCtx, account, result); err != nil {
			accountLogger.Error().Err(err).Msg("account sync failed")
			result.Failures = append(result.Failures, models.AccountFailure{
				AccountID: account.AccountID,
				Error:     err.Error(),
			})
		}

		if i < len(accounts)-1 {
			s.sleep(s.AccountDelay)
		}
	}

	result.AccountsFailed = len(result.Failures)
	result.Success = result.AccountsFailed == 0
	logger.Info().
		Int("transactions", result.TransactionsSynced).
		Int("balances", result.BalancesSynced).
		Int("failed_accounts", result.AccountsFailed).
		Msg("sync completed")
	return result, nil
}

func (s *Syncer) syncAccount(ctx context.Context, account models.Account, result *models.SyncResult) error {
	if err := s.syncTransactions(ctx, account, result); err != nil {
		return err
	}
	return s.syncBalances(ctx, account, result)
}

func (s *Syncer) syncTransactions(ctx context.Context, account models.Account, result *models.SyncResult) error {
	logger := logging.FromContext(ctx)
	encAccountID := s.Cipher.EncryptDeterministic(account.AccountID)

	lastDate := s.Store.LastBookingDate(ctx, account.UserID, encAccountID)
	transactions, err := s.Remote.GetTransactions(ctx, account.AccountID, lastDate)
	if err != nil {
		return err
	}
	logger.Info().Int("transactions", len(transactions)).Str("date_from", lastDate).Msg("fetched transactions")

	if len(transactions) > s.MaxTxPerAccount {
		transactions = transactions[:s.MaxTxPerAccount]
	}

	s.Classifier.SetHints(categorize.HintsFromRecords(s.Cipher, s.Store.RecentTransactions(ctx, account.UserID, categoryHintLimit)))

	for i := range transactions {
		tx := &transactions[i]
		docID := mapping.DocumentID(tx.ProviderID(), account.AccountID, tx.BookingDate, s.now())

		exists, err := s.Store.TransactionExists(ctx, docID)
		if err != nil {
			return err
		}
		if exists {
			logger.Debug().Str("doc_id", docID).Msg("transaction already synced, skipping")
			continue
		}

		category := s.Classifier.Categorize(ctx, tx.Description(), tx.Counterparty(), tx.TransactionAmount.Amount)
		rec := mapping.ToTransactionRecord(s.Cipher, tx, account.UserID, account.AccountID, docID, category, s.now())

		if err := s.Store.InsertTransaction(ctx, rec); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				logger.Debug().Str("doc_id", docID).Msg("transaction already synced, skipping")
				continue
			}
			return err
		}
		result.TransactionsSynced++
	}
	return nil
}

func (s *Syncer) syncBalances(ctx context.Context, account models.Account, result *models.SyncResult) error {
	logger := logging.FromContext(ctx)
	encAccountID := s.Cipher.EncryptDeterministic(account.AccountID)

	balances, err := s.Remote.GetBalances(ctx, account.AccountID)
	if err != nil {
		return err
	}

	for i := range balances {
		balance := &balances[i]
		balanceType := balance.BalanceType
		if balanceType == "" {
			balanceType = "expected"
		}

		existingID, err := s.Store.FindBalanceDocument(ctx, account.UserID, encAccountID, balanceType)
		if err != nil {
			return err
		}

		if existingID != "" {
			patch := mapping.ToBalancePatch(s.Cipher, balance, s.now())
			if err := s.Store.UpdateBalance(ctx, existingID, patch); err != nil {
				return err
			}
			logger.Debug().Str("doc_id", existingID).Str("balance_type", balanceType).Msg("updated balance")
		} else {
			rec := mapping.ToBalanceRecord(s.Cipher, balance, account.UserID, account.AccountID, s.now())
			if err := s.Store.InsertBalance(ctx, rec); err != nil {
				return err
			}
			logger.Debug().Str("doc_id", rec.ID).Str("balance_type", balanceType).Msg("created balance")
		}
		result.BalancesSynced++
	}
	return nil
}
