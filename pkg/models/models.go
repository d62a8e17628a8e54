package models

// AccountStatus defines the possible states of a linked bank account.
type AccountStatus string

const (
	ACTIVE    AccountStatus = "active"
	SUSPENDED AccountStatus = "suspended"
	EXPIRED   AccountStatus = "expired"
)

// Account represents a linked bank account as stored in the accounts table.
// The orchestrator treats accounts as read-only input.
type Account struct {
	AccountID string        `dynamodbav:"account_id"`
	UserID    string        `dynamodbav:"user_id"`
	Status    AccountStatus `dynamodbav:"status"`
}

// Amount is the amount/currency pair GoCardless nests inside transactions
// and balances.
type Amount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Transaction represents one booked transaction as returned by the
// GoCardless Bank Account Data API. At least one of TransactionID and
// InternalTransactionID is present.
type Transaction struct {
	TransactionID                     string `json:"transactionId,omitempty"`
	InternalTransactionID             string `json:"internalTransactionId,omitempty"`
	BookingDate                       string `json:"bookingDate,omitempty"`
	BookingDateTime                   string `json:"bookingDateTime,omitempty"`
	ValueDate                         string `json:"valueDate,omitempty"`
	TransactionAmount                 Amount `json:"transactionAmount"`
	CreditorName                      string `json:"creditorName,omitempty"`
	DebtorName                        string `json:"debtorName,omitempty"`
	RemittanceInformationUnstructured string `json:"remittanceInformationUnstructured,omitempty"`
	AdditionalInformation             string `json:"additionalInformation,omitempty"`
}

// Description returns the best available human-readable text for a
// transaction.
func (t *Transaction) Description() string {
	if t.RemittanceInformationUnstructured != "" {
		return t.RemittanceInformationUnstructured
	}
	return t.AdditionalInformation
}

// Counterparty returns the creditor name, falling back to the debtor name.
func (t *Transaction) Counterparty() string {
	if t.CreditorName != "" {
		return t.CreditorName
	}
	return t.DebtorName
}

// ProviderID returns the provider transaction id, falling back to the
// internal transaction id.
func (t *Transaction) ProviderID() string {
	if t.TransactionID != "" {
		return t.TransactionID
	}
	return t.InternalTransactionID
}

// Balance represents one balance entry as returned by GoCardless.
type Balance struct {
	BalanceType   string `json:"balanceType"`
	ReferenceDate string `json:"referenceDate,omitempty"`
	BalanceAmount Amount `json:"balanceAmount"`
}

// TransactionRecord is the persisted form of a transaction. Sensitive fields
// hold ciphertext tokens: AccountID and TransactionID are deterministically
// encrypted so equality queries still work; the rest are randomly encrypted.
// Records are immutable after insert.
type TransactionRecord struct {
	ID            string `dynamodbav:"id"`
	UserID        string `dynamodbav:"user_id"`
	Category      string `dynamodbav:"category"`
	Exclude       bool   `dynamodbav:"exclude"`
	BookingDate   string `dynamodbav:"booking_date,omitempty"`
	AccountID     string `dynamodbav:"account_id"`
	TransactionID string `dynamodbav:"transaction_id,omitempty"`
	Amount        string `dynamodbav:"amount,omitempty"`
	Currency      string `dynamodbav:"currency,omitempty"`
	ValueDate     string `dynamodbav:"value_date,omitempty"`
	Description   string `dynamodbav:"description,omitempty"`
	Counterparty  string `dynamodbav:"counterparty,omitempty"`
	Raw           string `dynamodbav:"raw,omitempty"`
	CreatedAt     string `dynamodbav:"created_at"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

// BalanceRecord is the persisted form of a balance. Its natural key is
// (UserID, AccountID, BalanceType); at most one record exists per tuple.
type BalanceRecord struct {
	ID            string `dynamodbav:"id"`
	UserID        string `dynamodbav:"user_id"`
	BalanceType   string `dynamodbav:"balance_type"`
	ReferenceDate string `dynamodbav:"reference_date"`
	AccountID     string `dynamodbav:"account_id"`
	Amount        string `dynamodbav:"amount,omitempty"`
	Currency      string `dynamodbav:"currency,omitempty"`
	CreatedAt     string `dynamodbav:"created_at"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

// BalancePatch carries the only fields an existing balance record may have
// updated. CreatedAt and the natural key are never touched.
type BalancePatch struct {
	Amount        string
	Currency      string
	ReferenceDate string
}

// Requisition represents a GoCardless requisition document. Everything but
// the user id is stored encrypted.
type Requisition struct {
	ID            string `dynamodbav:"id" json:"id"`
	UserID        string `dynamodbav:"user_id" json:"userId"`
	RequisitionID string `dynamodbav:"requisition_id,omitempty" json:"requisitionId,omitempty"`
	InstitutionID string `dynamodbav:"institution_id,omitempty" json:"institutionId,omitempty"`
	Status        string `dynamodbav:"status,omitempty" json:"status,omitempty"`
	CreatedAt     string `dynamodbav:"created_at" json:"createdAt"`
}

// DataKey is a wrapped data encryption key stored in the key vault table.
type DataKey struct {
	KeyAltName string `dynamodbav:"key_alt_name"`
	WrappedKey []byte `dynamodbav:"wrapped_key"`
	Provider   string `dynamodbav:"provider"`
	CreatedAt  string `dynamodbav:"created_at"`
}

// AccountFailure records a per-account error without aborting the batch.
type AccountFailure struct {
	AccountID string `json:"accountId"`
	Error     string `json:"error"`
}

// SyncResult is the structured result of one sync invocation.
type SyncResult struct {
	Success            bool             `json:"success"`
	TransactionsSynced int              `json:"transactionsSynced"`
	BalancesSynced     int              `json:"balancesSynced"`
	AccountsProcessed  int              `json:"accountsProcessed"`
	AccountsFailed     int              `json:"accountsFailed"`
	Failures           []AccountFailure `json:"failures,omitempty"`
}
