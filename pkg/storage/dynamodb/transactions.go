package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/nexpass/gocardless-sync/pkg/storage"
)

const (
	// account_id holds a deterministic ciphertext token, which is stable
	// per plaintext and therefore usable as a GSI hash key.
	accountBookingDateIndex = "account_id-booking_date-index"
	transactionsUserIndex   = "user_id-index"
)

// TransactionExists reports whether a transaction document with the given id
// has already been synced.
func (s *Store) TransactionExists(ctx context.Context, id string) (bool, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.TransactionsTableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ProjectionExpression: aws.String("id"),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction existence: %w", err)
	}
	return result.Item != nil, nil
}

// InsertTransaction stores a new transaction document. The conditional put
// turns a duplicate id into storage.ErrAlreadyExists, which callers treat as
// an already-synced skip rather than a failure.
func (s *Store) InsertTransaction(ctx context.Context, rec models.TransactionRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.TransactionsTableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}

	if _, err := s.Client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// LastBookingDate returns the most recent booking date (falling back to the
// value date) for a user's account, or "" when none exists. Any error also
// degrades to "": the account then syncs from scratch, and the conditional
// insert keeps that idempotent.
func (s *Store) LastBookingDate(ctx context.Context, userID, encAccountID string) string {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(accountBookingDateIndex),
		KeyConditionExpression: aws.String("account_id = :account_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":account_id": &types.AttributeValueMemberS{Value: encAccountID},
		},
		ScanIndexForward: aws.Bool(false), // most recent booking date first
		Limit:            aws.Int32(1),
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil || len(result.Items) == 0 {
		return ""
	}

	var rec models.TransactionRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return ""
	}
	if rec.UserID != userID {
		return ""
	}
	if rec.BookingDate != "" {
		return rec.BookingDate
	}
	return rec.ValueDate
}

// RecentTransactions retrieves up to limit recent transaction records for a
// user. Best-effort: any failure yields an empty slice.
func (s *Store) RecentTransactions(ctx context.Context, userID string, limit int) []models.TransactionRecord {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(transactionsUserIndex),
		KeyConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
		Limit: aws.Int32(int32(limit)),
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil
	}

	var records []models.TransactionRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return nil
	}
	return records
}
