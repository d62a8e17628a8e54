package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/nexpass/gocardless-sync/pkg/storage"
	"github.com/nexpass/gocardless-sync/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFindDataKey(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		item, _ := attributevalue.MarshalMap(models.DataKey{
			KeyAltName: "nexpass-data-key",
			WrappedKey: []byte("wrapped"),
			Provider:   "local",
		})
		mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.GetItemInput) bool {
			return *input.TableName == "key_vault"
		})).Return(&dynamodb.GetItemOutput{Item: item}, nil)

		key, err := store.FindDataKey(context.Background(), "nexpass-data-key")

		require.NoError(t, err)
		assert.Equal(t, "nexpass-data-key", key.KeyAltName)
		assert.Equal(t, []byte("wrapped"), key.WrappedKey)
		assert.Equal(t, "local", key.Provider)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: nil}, nil)

		_, err := store.FindDataKey(context.Background(), "nexpass-data-key")

		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(nil, errors.New("get item failed"))

		_, err := store.FindDataKey(context.Background(), "nexpass-data-key")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestCreateDataKey(t *testing.T) {
	mockClient := new(mocks.DynamoDBAPI)
	store := newTestStore(mockClient)

	mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.PutItemInput) bool {
		return *input.TableName == "key_vault" && *input.ConditionExpression == "attribute_not_exists(key_alt_name)"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	err := store.CreateDataKey(context.Background(), models.DataKey{
		KeyAltName: "nexpass-data-key",
		WrappedKey: []byte("wrapped"),
		Provider:   "aws-kms",
	})

	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}
