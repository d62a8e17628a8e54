// Package app wires the pipeline's dependencies into a session object
// constructed once per process and passed by reference, instead of
// module-level singletons.
package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/nexpass/gocardless-sync/pkg/categorize"
	"github.com/nexpass/gocardless-sync/pkg/config"
	"github.com/nexpass/gocardless-sync/pkg/crypto"
	"github.com/nexpass/gocardless-sync/pkg/gocardless"
	"github.com/nexpass/gocardless-sync/pkg/logging"
	dydbstore "github.com/nexpass/gocardless-sync/pkg/storage/dynamodb"
	"github.com/nexpass/gocardless-sync/pkg/sync"
)

// Session holds the process-wide dependencies: the store, the resolved
// field cipher and the configured syncer. A fresh process (cold start)
// rebuilds all of it; nothing survives across invocations.
type Session struct {
	Config *config.Config
	Store  *dydbstore.Store
	Cipher *crypto.Fieldcipher
	Syncer *sync.Syncer
}

// Open loads configuration and builds the session. Configuration errors are
// fatal to the invocation; everything downstream degrades per component.
func Open(ctx context.Context) (*Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	store := dydbstore.New(
		dynamodb.NewFromConfig(awsCfg),
		cfg.AccountsTable,
		cfg.TransactionsTable,
		cfg.BalancesTable,
		cfg.RequisitionsTable,
		cfg.KeyVaultTable,
	)

	var provider crypto.MasterKeyProvider
	if cfg.KMSKeyID != "" {
		provider = crypto.NewKMSProvider(kms.NewFromConfig(awsCfg), cfg.KMSKeyID)
	} else {
		provider, err = crypto.NewLocalProvider(cfg.MasterKeySecret)
		if err != nil {
			return nil, err
		}
	}

	cipher, err := crypto.NewKeyring(store, provider).Fieldcipher(ctx)
	if err != nil {
		return nil, err
	}

	// A missing model configuration only disables the fallback tier;
	// classification always degrades to Uncategorized rather than failing.
	var labeler categorize.Labeler
	if genaiLabeler, err := categorize.NewGenAILabeler(ctx, cfg.GeminiModel); err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().Err(err).Msg("model classification disabled")
	} else {
		labeler = genaiLabeler
	}

	remote := gocardless.NewClient(cfg.GoCardlessSecretID, cfg.GoCardlessSecretKey, cfg.GoCardlessBaseURL)

	syncer := sync.New(store, remote, cipher, categorize.New(labeler))
	syncer.MaxAccounts = cfg.MaxAccountsPerRun
	syncer.MaxTxPerAccount = cfg.MaxTransactionsPerAccount
	syncer.AccountDelay = cfg.AccountDelay

	return &Session{
		Config: cfg,
		Store:  store,
		Cipher: cipher,
		Syncer: syncer,
	}, nil
}
