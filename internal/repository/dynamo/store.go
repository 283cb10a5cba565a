// Package dynamo implements model.KeyValueStore on Amazon DynamoDB.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dtroode/regicide-accounts/internal/logger"
	"github.com/dtroode/regicide-accounts/internal/model"
)

// maxBatchSize is the BatchWriteItem request limit.
const maxBatchSize = 25

// API is the subset of the DynamoDB client the store calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

var _ model.KeyValueStore = (*Store)(nil)

// Store keeps account items in a single DynamoDB table keyed by (User, Property).
type Store struct {
	client API
	table  string
	logger *logger.Logger
}

// New creates a Store over table.
func New(client API, table string, logger *logger.Logger) *Store {
	return &Store{
		client: client,
		table:  table,
		logger: logger,
	}
}

func (s *Store) GetItem(ctx context.Context, in model.GetItemInput) (model.Item, error) {
	req := &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(in.Key),
		ConsistentRead: aws.Bool(in.ConsistentRead),
	}

	if len(in.Projection) > 0 {
		expr, err := expression.NewBuilder().WithProjection(projection(in.Projection)).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build projection: %w", err)
		}
		req.ProjectionExpression = expr.Projection()
		req.ExpressionAttributeNames = expr.Names()
	}

	out, err := s.client.GetItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, model.ErrNotFound
	}

	return decodeItem(out.Item)
}

func (s *Store) PutItem(ctx context.Context, item model.Item, cond *model.Condition) error {
	av, err := encodeItem(item)
	if err != nil {
		return err
	}

	req := &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}

	if cond != nil {
		expr, err := expression.NewBuilder().WithCondition(condition(cond)).Build()
		if err != nil {
			return fmt.Errorf("failed to build condition: %w", err)
		}
		req.ConditionExpression = expr.Condition()
		req.ExpressionAttributeNames = expr.Names()
		req.ExpressionAttributeValues = expr.Values()
	}

	if _, err := s.client.PutItem(ctx, req); err != nil {
		return mapError("put item", err)
	}
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, in model.UpdateItemInput) (model.Item, error) {
	if len(in.Set) == 0 && len(in.Remove) == 0 {
		return nil, fmt.Errorf("update of %s/%d has no actions", in.Key.User, in.Key.Property)
	}

	var update expression.UpdateBuilder
	for attr, value := range in.Set {
		update = update.Set(expression.Name(attr), expression.Value(value))
	}
	for _, attr := range in.Remove {
		update = update.Remove(expression.Name(attr))
	}

	builder := expression.NewBuilder().WithUpdate(update)
	if in.Condition != nil {
		builder = builder.WithCondition(condition(in.Condition))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(in.Key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, mapError("update item", err)
	}

	return decodeItem(out.Attributes)
}

func (s *Store) DeleteItem(ctx context.Context, k model.ItemKey) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(k),
	})
	if err != nil {
		return mapError("delete item", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, in model.QueryInput) ([]model.Item, error) {
	keyCond := expression.Key(model.AttrUser).Equal(expression.Value(in.User))
	if in.SortKey != nil {
		property := expression.Key(model.AttrProperty)
		value := expression.Value(in.SortKey.Value)
		switch in.SortKey.Op {
		case model.SortKeyEqual:
			keyCond = keyCond.And(property.Equal(value))
		case model.SortKeyGreaterThan:
			keyCond = keyCond.And(property.GreaterThan(value))
		default:
			return nil, fmt.Errorf("unsupported sort key operator %d", in.SortKey.Op)
		}
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(in.ConsistentRead),
	})

	var items []model.Item
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query items: %w", err)
		}
		decoded, err := decodeItems(page.Items)
		if err != nil {
			return nil, err
		}
		items = append(items, decoded...)
	}

	return items, nil
}

// QueryIndex reads a single page of the index. The limit counts items read before
// ExcludeUser filtering, as DynamoDB applies filters after the limit.
func (s *Store) QueryIndex(ctx context.Context, in model.IndexQueryInput) ([]model.Item, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key(in.Attribute).Equal(expression.Value(in.Value)))
	if in.ExcludeUser != "" {
		builder = builder.WithFilter(expression.Name(model.AttrUser).NotEqual(expression.Value(in.ExcludeUser)))
	}
	if len(in.Projection) > 0 {
		builder = builder.WithProjection(projection(in.Projection))
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build index query: %w", err)
	}

	req := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(in.Index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if in.Limit > 0 {
		req.Limit = aws.Int32(in.Limit)
	}

	out, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", in.Index, err)
	}

	return decodeItems(out.Items)
}

// BatchWrite puts items in requests of at most 25 and collects what DynamoDB left unprocessed.
func (s *Store) BatchWrite(ctx context.Context, items []model.Item) ([]model.Item, error) {
	var unprocessed []model.Item

	for start := 0; start < len(items); start += maxBatchSize {
		end := min(start+maxBatchSize, len(items))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			av, err := encodeItem(item)
			if err != nil {
				return nil, err
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: requests},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to batch write items: %w", err)
		}

		for _, req := range out.UnprocessedItems[s.table] {
			if req.PutRequest == nil {
				continue
			}
			item, err := decodeItem(req.PutRequest.Item)
			if err != nil {
				return nil, err
			}
			unprocessed = append(unprocessed, item)
		}
	}

	if len(unprocessed) > 0 {
		s.logger.Debug("DynamoDB store: batch write returned unprocessed items",
			"table", s.table,
			"unprocessed", len(unprocessed))
	}

	return unprocessed, nil
}

func key(k model.ItemKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		model.AttrUser:     &types.AttributeValueMemberS{Value: k.User},
		model.AttrProperty: &types.AttributeValueMemberN{Value: strconv.Itoa(k.Property)},
	}
}

func condition(c *model.Condition) expression.ConditionBuilder {
	name := expression.Name(c.Attribute)
	switch c.Kind {
	case model.ConditionAttributeExists:
		return expression.AttributeExists(name)
	case model.ConditionEquals:
		return name.Equal(expression.Value(c.Value))
	case model.ConditionNotEquals:
		return expression.Or(expression.AttributeNotExists(name), name.NotEqual(expression.Value(c.Value)))
	default:
		return expression.AttributeNotExists(name)
	}
}

func projection(attrs []string) expression.ProjectionBuilder {
	names := make([]expression.NameBuilder, 0, len(attrs))
	for _, attr := range attrs {
		names = append(names, expression.Name(attr))
	}
	return expression.NamesList(names[0], names[1:]...)
}

func mapError(op string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return model.ErrConditionFailed
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func encodeItem(item model.Item) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(map[string]any(item))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return av, nil
}

func decodeItem(av map[string]types.AttributeValue) (model.Item, error) {
	var out map[string]any
	err := attributevalue.UnmarshalMapWithOptions(av, &out, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return model.Item(out), nil
}

func decodeItems(avs []map[string]types.AttributeValue) ([]model.Item, error) {
	items := make([]model.Item, 0, len(avs))
	for _, av := range avs {
		item, err := decodeItem(av)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
