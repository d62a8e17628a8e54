package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the sync pipeline reads from the environment.
// A missing required value is a configuration error and aborts the whole
// invocation before any account is touched.
type Config struct {
	GoCardlessSecretID  string
	GoCardlessSecretKey string
	GoCardlessBaseURL   string

	AccountsTable     string
	TransactionsTable string
	BalancesTable     string
	RequisitionsTable string
	KeyVaultTable     string

	// Exactly one of the key sources must be configured. KMSKeyID selects
	// the KMS-wrapped data key path; MasterKeySecret derives a local master
	// key instead.
	KMSKeyID        string
	MasterKeySecret string

	MaxAccountsPerRun         int
	MaxTransactionsPerAccount int
	AccountDelay              time.Duration

	GeminiModel string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		GoCardlessSecretID:  os.Getenv("GOCARDLESS_SECRET_ID"),
		GoCardlessSecretKey: os.Getenv("GOCARDLESS_SECRET_KEY"),
		GoCardlessBaseURL:   getEnv("GOCARDLESS_BASE_URL", "https://bankaccountdata.gocardless.com/api/v2"),

		AccountsTable:     getEnv("ACCOUNTS_TABLE_NAME", "bank_accounts_dev"),
		TransactionsTable: getEnv("TRANSACTIONS_TABLE_NAME", "transactions_dev"),
		BalancesTable:     getEnv("BALANCES_TABLE_NAME", "balances_dev"),
		RequisitionsTable: getEnv("REQUISITIONS_TABLE_NAME", "requisitions_dev"),
		KeyVaultTable:     getEnv("KEY_VAULT_TABLE_NAME", "key_vault_dev"),

		KMSKeyID:        os.Getenv("KMS_KEY_ID"),
		MasterKeySecret: os.Getenv("MASTER_KEY_SECRET"),

		MaxAccountsPerRun:         getEnvInt("MAX_ACCOUNTS_PER_RUN", 50),
		MaxTransactionsPerAccount: getEnvInt("MAX_TRANSACTIONS_PER_ACCOUNT", 50),
		AccountDelay:              getEnvDuration("ACCOUNT_DELAY", time.Second),

		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	var missing []string
	if cfg.GoCardlessSecretID == "" {
		missing = append(missing, "GOCARDLESS_SECRET_ID")
	}
	if cfg.GoCardlessSecretKey == "" {
		missing = append(missing, "GOCARDLESS_SECRET_KEY")
	}
	if cfg.KMSKeyID == "" && cfg.MasterKeySecret == "" {
		missing = append(missing, "KMS_KEY_ID or MASTER_KEY_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}
