package storage

// Storage defines the root interface for the entire data layer.
// It composes all available storage operations. Components should depend on
// the more granular interfaces (AccountStore, TransactionStore, etc.)
// instead of this one.
type Storage interface {
	AccountStore
	TransactionStore
	BalanceStore
	RequisitionStore
	KeyVaultStore
}

// SyncStore is the subset of operations the sync orchestrator needs.
type SyncStore interface {
	AccountStore
	TransactionStore
	BalanceStore
}
