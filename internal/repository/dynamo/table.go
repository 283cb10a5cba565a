package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dtroode/regicide-accounts/internal/model"
)

const tableReadyTimeout = 2 * time.Minute

// NewClient creates a DynamoDB client. A non-empty endpoint points it at DynamoDB Local.
func NewClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// EnsureTable creates the accounts table with its email index unless it exists,
// then waits for it to become active.
func (s *Store) EnsureTable(ctx context.Context, emailIndex string) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", s.table, err)
	}

	s.logger.Info("DynamoDB store: creating table",
		"table", s.table,
		"email_index", emailIndex)

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(model.AttrUser), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(model.AttrProperty), AttributeType: types.ScalarAttributeTypeN},
			{AttributeName: aws.String(model.AttrEmail), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(model.AttrUser), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(model.AttrProperty), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(emailIndex),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(model.AttrEmail), KeyType: types.KeyTypeHash},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeKeysOnly},
		}},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("failed to create table %s: %w", s.table, err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, tableReadyTimeout); err != nil {
		return fmt.Errorf("table %s not ready: %w", s.table, err)
	}

	return nil
}
