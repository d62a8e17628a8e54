package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nexpass/gocardless-sync/pkg/storage"
)

// DynamoDBAPI defines the subset of the DynamoDB client used by the Store.
// It exists so tests can substitute a mock.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store implements the storage interfaces using AWS DynamoDB.
type Store struct {
	Client                DynamoDBAPI
	AccountsTableName     string
	TransactionsTableName string
	BalancesTableName     string
	RequisitionsTableName string
	KeyVaultTableName     string
}

// New creates a new Store.
func New(client DynamoDBAPI, accountsTable, transactionsTable, balancesTable, requisitionsTable, keyVaultTable string) *Store {
	return &Store{
		Client:                client,
		AccountsTableName:     accountsTable,
		TransactionsTableName: transactionsTable,
		BalancesTableName:     balancesTable,
		RequisitionsTableName: requisitionsTable,
		KeyVaultTableName:     keyVaultTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)
