package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/nexpass/gocardless-sync/pkg/storage"
)

// FindDataKey retrieves the wrapped data key with the given alias.
func (s *Store) FindDataKey(ctx context.Context, keyAltName string) (*models.DataKey, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.KeyVaultTableName),
		Key: map[string]types.AttributeValue{
			"key_alt_name": &types.AttributeValueMemberS{Value: keyAltName},
		},
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get data key from key vault: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var key models.DataKey
	if err := attributevalue.UnmarshalMap(result.Item, &key); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data key: %w", err)
	}
	return &key, nil
}

// CreateDataKey stores a freshly wrapped data key under its alias.
func (s *Store) CreateDataKey(ctx context.Context, key models.DataKey) error {
	item, err := attributevalue.MarshalMap(key)
	if err != nil {
		return fmt.Errorf("failed to marshal data key: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.KeyVaultTableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(key_alt_name)"),
	}

	if _, err := s.Client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to store data key: %w", err)
	}
	return nil
}
