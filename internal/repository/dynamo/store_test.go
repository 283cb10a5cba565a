package dynamo

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/regicide-accounts/internal/model"
	"github.com/dtroode/regicide-accounts/internal/testutil"
)

const testTable = "regicide-accounts"

// fakeAPI embeds API so tests only implement the calls they expect.
type fakeAPI struct {
	API

	getItem        func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putItem        func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	updateItem     func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	query          func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	batchWriteItem func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)
	describeTable  func(*dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error)
	createTable    func(*dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error)
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getItem(in)
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return f.putItem(in)
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return f.updateItem(in)
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return f.query(in)
}

func (f *fakeAPI) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return f.batchWriteItem(in)
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return f.describeTable(in)
}

func (f *fakeAPI) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return f.createTable(in)
}

func newStore(api API) *Store {
	return New(api, testTable, testutil.MakeNoopLogger())
}

func TestStore_GetItem(t *testing.T) {
	var got *dynamodb.GetItemInput
	api := &fakeAPI{getItem: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		got = in
		return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
			model.AttrToken: &types.AttributeValueMemberS{Value: "tok"},
			model.AttrCoins: &types.AttributeValueMemberN{Value: "15"},
		}}, nil
	}}

	item, err := newStore(api).GetItem(context.Background(), model.GetItemInput{
		Key:            model.ItemKey{User: "alice", Property: 0},
		ConsistentRead: true,
		Projection:     []string{model.AttrToken},
	})
	require.NoError(t, err)

	assert.Equal(t, "tok", item[model.AttrToken])
	assert.Equal(t, attributevalue.Number("15"), item[model.AttrCoins])

	require.NotNil(t, got)
	assert.Equal(t, testTable, aws.ToString(got.TableName))
	assert.True(t, aws.ToBool(got.ConsistentRead))
	assert.NotEmpty(t, aws.ToString(got.ProjectionExpression))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "alice"}, got.Key[model.AttrUser])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "0"}, got.Key[model.AttrProperty])
}

func TestStore_GetItem_NotFound(t *testing.T) {
	api := &fakeAPI{getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{}, nil
	}}

	_, err := newStore(api).GetItem(context.Background(), model.GetItemInput{Key: model.ItemKey{User: "alice"}})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_PutItem_ConditionFailed(t *testing.T) {
	var got *dynamodb.PutItemInput
	api := &fakeAPI{putItem: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		got = in
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	}}

	err := newStore(api).PutItem(context.Background(), model.Item{
		model.AttrUser:     "alice",
		model.AttrProperty: 0,
		model.AttrCards:    map[string]any{"1": uint16(2)},
	}, model.AttributeNotExists(model.AttrUser))
	require.ErrorIs(t, err, model.ErrConditionFailed)

	require.NotNil(t, got)
	assert.Contains(t, aws.ToString(got.ConditionExpression), "attribute_not_exists")
	assert.IsType(t, &types.AttributeValueMemberM{}, got.Item[model.AttrCards])
}

func TestStore_PutItem_OtherError(t *testing.T) {
	api := &fakeAPI{putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		return nil, errors.New("throttled")
	}}

	err := newStore(api).PutItem(context.Background(), model.Item{model.AttrUser: "alice", model.AttrProperty: 0}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrConditionFailed)
}

func TestStore_UpdateItem(t *testing.T) {
	var got *dynamodb.UpdateItemInput
	api := &fakeAPI{updateItem: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		got = in
		return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
			model.AttrUser:     &types.AttributeValueMemberS{Value: "alice"},
			model.AttrPassHash: &types.AttributeValueMemberS{Value: "hash"},
			model.AttrToken:    &types.AttributeValueMemberS{Value: "new"},
		}}, nil
	}}

	item, err := newStore(api).UpdateItem(context.Background(), model.UpdateItemInput{
		Key:       model.ItemKey{User: "alice"},
		Set:       map[string]any{model.AttrToken: "new"},
		Remove:    []string{model.AttrProvisioning},
		Condition: model.Equals(model.AttrPassHash, "hash"),
	})
	require.NoError(t, err)
	assert.Equal(t, "new", item[model.AttrToken])

	require.NotNil(t, got)
	assert.Equal(t, types.ReturnValueAllNew, got.ReturnValues)
	assert.Contains(t, aws.ToString(got.UpdateExpression), "SET")
	assert.Contains(t, aws.ToString(got.UpdateExpression), "REMOVE")
	assert.NotEmpty(t, aws.ToString(got.ConditionExpression))
}

func TestStore_UpdateItem_NoActions(t *testing.T) {
	_, err := newStore(&fakeAPI{}).UpdateItem(context.Background(), model.UpdateItemInput{Key: model.ItemKey{User: "alice"}})
	require.Error(t, err)
}

func TestStore_Query_Paginates(t *testing.T) {
	calls := 0
	api := &fakeAPI{query: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		calls++
		assert.True(t, aws.ToBool(in.ConsistentRead))
		if calls == 1 {
			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{{
					model.AttrUser:     &types.AttributeValueMemberS{Value: "alice"},
					model.AttrProperty: &types.AttributeValueMemberN{Value: "1"},
				}},
				LastEvaluatedKey: map[string]types.AttributeValue{
					model.AttrUser:     &types.AttributeValueMemberS{Value: "alice"},
					model.AttrProperty: &types.AttributeValueMemberN{Value: "1"},
				},
			}, nil
		}
		require.NotEmpty(t, in.ExclusiveStartKey)
		return &dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{{
				model.AttrUser:     &types.AttributeValueMemberS{Value: "alice"},
				model.AttrProperty: &types.AttributeValueMemberN{Value: "5"},
			}},
		}, nil
	}}

	items, err := newStore(api).Query(context.Background(), model.QueryInput{
		User:           "alice",
		SortKey:        &model.SortKeyPredicate{Op: model.SortKeyGreaterThan, Value: 0},
		ConsistentRead: true,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, attributevalue.Number("5"), items[1][model.AttrProperty])
}

func TestStore_QueryIndex(t *testing.T) {
	var got *dynamodb.QueryInput
	api := &fakeAPI{query: func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		got = in
		return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{{
			model.AttrEmail: &types.AttributeValueMemberS{Value: "a@x.io"},
		}}}, nil
	}}

	items, err := newStore(api).QueryIndex(context.Background(), model.IndexQueryInput{
		Index:       "Email-index",
		Attribute:   model.AttrEmail,
		Value:       "a@x.io",
		ExcludeUser: "alice",
		Limit:       2,
		Projection:  []string{model.AttrEmail},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NotNil(t, got)
	assert.Equal(t, "Email-index", aws.ToString(got.IndexName))
	assert.Equal(t, int32(2), aws.ToInt32(got.Limit))
	assert.NotEmpty(t, aws.ToString(got.FilterExpression))
	assert.NotEmpty(t, aws.ToString(got.ProjectionExpression))
	assert.Nil(t, got.ConsistentRead)
}

func TestStore_BatchWrite_ChunksAndUnprocessed(t *testing.T) {
	var sizes []int
	api := &fakeAPI{batchWriteItem: func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		requests := in.RequestItems[testTable]
		sizes = append(sizes, len(requests))
		// The last request of every chunk is left unprocessed.
		return &dynamodb.BatchWriteItemOutput{
			UnprocessedItems: map[string][]types.WriteRequest{
				testTable: requests[len(requests)-1:],
			},
		}, nil
	}}

	items := make([]model.Item, 30)
	for i := range items {
		items[i] = model.Item{model.AttrUser: "alice", model.AttrProperty: i + 1}
	}

	unprocessed, err := newStore(api).BatchWrite(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, []int{25, 5}, sizes)
	require.Len(t, unprocessed, 2)
	assert.Equal(t, attributevalue.Number(strconv.Itoa(25)), unprocessed[0][model.AttrProperty])
	assert.Equal(t, attributevalue.Number(strconv.Itoa(30)), unprocessed[1][model.AttrProperty])
}

func TestStore_BatchWrite_Error(t *testing.T) {
	api := &fakeAPI{batchWriteItem: func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		return nil, errors.New("provisioned throughput exceeded")
	}}

	_, err := newStore(api).BatchWrite(context.Background(), []model.Item{{model.AttrUser: "alice", model.AttrProperty: 1}})
	require.Error(t, err)
}

func TestStore_EnsureTable_Creates(t *testing.T) {
	describes := 0
	var created *dynamodb.CreateTableInput
	api := &fakeAPI{
		describeTable: func(*dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
			describes++
			if describes == 1 {
				return nil, &types.ResourceNotFoundException{Message: aws.String("missing")}
			}
			return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
				TableName:   aws.String(testTable),
				TableStatus: types.TableStatusActive,
			}}, nil
		},
		createTable: func(in *dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error) {
			created = in
			return &dynamodb.CreateTableOutput{}, nil
		},
	}

	require.NoError(t, newStore(api).EnsureTable(context.Background(), "Email-index"))

	require.NotNil(t, created)
	require.Len(t, created.GlobalSecondaryIndexes, 1)
	assert.Equal(t, "Email-index", aws.ToString(created.GlobalSecondaryIndexes[0].IndexName))
	assert.Equal(t, types.ProjectionTypeKeysOnly, created.GlobalSecondaryIndexes[0].Projection.ProjectionType)
	assert.Len(t, created.KeySchema, 2)
}

func TestStore_EnsureTable_Exists(t *testing.T) {
	api := &fakeAPI{describeTable: func(*dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
		return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}, nil
	}}

	require.NoError(t, newStore(api).EnsureTable(context.Background(), "Email-index"))
}
