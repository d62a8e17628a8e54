package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nexpass/gocardless-sync/pkg/models"
)

const balancesAccountIndex = "account_id-index"

// FindBalanceDocument returns the id of the balance document matching the
// natural key (userId, accountId, balanceType), or "" when none exists.
func (s *Store) FindBalanceDocument(ctx context.Context, userID, encAccountID, balanceType string) (string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.BalancesTableName),
		IndexName:              aws.String(balancesAccountIndex),
		KeyConditionExpression: aws.String("account_id = :account_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":account_id": &types.AttributeValueMemberS{Value: encAccountID},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to query balances: %w", err)
	}

	var records []models.BalanceRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return "", fmt.Errorf("failed to unmarshal balances: %w", err)
	}

	for _, rec := range records {
		if rec.UserID == userID && rec.BalanceType == balanceType {
			return rec.ID, nil
		}
	}
	return "", nil
}

// InsertBalance stores a new balance document with CreatedAt set once.
func (s *Store) InsertBalance(ctx context.Context, rec models.BalanceRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal balance record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.BalancesTableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}

	if _, err := s.Client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to insert balance: %w", err)
	}
	return nil
}

// UpdateBalance patches an existing balance document. Only the amount,
// currency, reference date and updated_at are touched; created_at and the
// natural key are immutable.
func (s *Store) UpdateBalance(ctx context.Context, id string, patch models.BalancePatch) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.BalancesTableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET amount = :amount, currency = :currency, reference_date = :reference_date, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount":         &types.AttributeValueMemberS{Value: patch.Amount},
			":currency":       &types.AttributeValueMemberS{Value: patch.Currency},
			":reference_date": &types.AttributeValueMemberS{Value: patch.ReferenceDate},
			":updated_at":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("failed to update balance %s: %w", id, err)
	}
	return nil
}
