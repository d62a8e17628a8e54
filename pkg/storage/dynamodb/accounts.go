package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nexpass/gocardless-sync/pkg/models"
)

// ActiveAccounts retrieves up to limit active accounts. The scan is capped
// before filtering, so the in-memory status check below also covers
// deployments where the status attribute is stored encrypted and cannot be
// filtered server-side.
func (s *Store) ActiveAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.AccountsTableName),
		Limit:     aws.Int32(int32(limit)),
	}

	result, err := s.Client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to scan accounts: %w", err)
	}

	var accounts []models.Account
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &accounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
	}

	active := make([]models.Account, 0, len(accounts))
	for _, account := range accounts {
		if account.Status == models.ACTIVE {
			active = append(active, account)
		}
	}
	return active, nil
}

const requisitionsUserIndex = "user_id-index"

// UserRequisitions retrieves the requisitions linked to a user.
func (s *Store) UserRequisitions(ctx context.Context, userID string) ([]models.Requisition, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.RequisitionsTableName),
		IndexName:              aws.String(requisitionsUserIndex),
		KeyConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query requisitions: %w", err)
	}

	var requisitions []models.Requisition
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &requisitions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal requisitions: %w", err)
	}
	return requisitions, nil
}
