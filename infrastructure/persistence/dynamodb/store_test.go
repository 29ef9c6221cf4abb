package dynamodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"paperstore/domain/paper"
	apperrors "paperstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) CreateTable(ctx context.Context, params *awsdynamodb.CreateTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*awsdynamodb.CreateTableOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) DescribeTable(ctx context.Context, params *awsdynamodb.DescribeTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*awsdynamodb.DescribeTableOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) BatchWriteItem(ctx context.Context, params *awsdynamodb.BatchWriteItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.BatchWriteItemOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*awsdynamodb.BatchWriteItemOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, params *awsdynamodb.QueryInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*awsdynamodb.QueryOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func testItems(n int) []paper.Item {
	items := make([]paper.Item, n)
	for i := range items {
		items[i] = paper.Item{
			PK:       "CATEGORY#cs.AI",
			SK:       fmt.Sprintf("2023-01-02#A%d", i),
			ItemType: paper.ItemTypeCategory,
			ArxivID:  fmt.Sprintf("A%d", i),
		}
	}
	return items
}

// hasStringValue reports whether any expression attribute value equals s.
func hasStringValue(values map[string]types.AttributeValue, s string) bool {
	for _, v := range values {
		if sv, ok := v.(*types.AttributeValueMemberS); ok && sv.Value == s {
			return true
		}
	}
	return false
}

func TestUpsertBatch_ChunksAtDynamoDBLimit(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	var sizes []int
	client.On("BatchWriteItem", ctx, mock.Anything).Return(&awsdynamodb.BatchWriteItemOutput{}, nil).Run(func(args mock.Arguments) {
		input := args.Get(1).(*awsdynamodb.BatchWriteItemInput)
		sizes = append(sizes, len(input.RequestItems["papers"]))
	})

	err := store.UpsertBatch(ctx, testItems(26))

	require.NoError(t, err)
	assert.Equal(t, []int{25, 1}, sizes)
	client.AssertNumberOfCalls(t, "BatchWriteItem", 2)
}

func TestUpsertBatch_DuplicateKeysCollapseLastWriteWins(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	first := paper.Item{PK: "CATEGORY#cs.AI", SK: "2023-01-02#A1", ItemType: paper.ItemTypeCategory, ArxivID: "A1", Title: "stale"}
	second := first
	second.Title = "corrected"
	other := paper.Item{PK: "CATEGORY#cs.LG", SK: "2023-01-02#A1", ItemType: paper.ItemTypeCategory, ArxivID: "A1"}

	var captured *awsdynamodb.BatchWriteItemInput
	client.On("BatchWriteItem", ctx, mock.Anything).Return(&awsdynamodb.BatchWriteItemOutput{}, nil).Run(func(args mock.Arguments) {
		captured = args.Get(1).(*awsdynamodb.BatchWriteItemInput)
	})

	err := store.UpsertBatch(ctx, []paper.Item{first, other, second})

	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "BatchWriteItem", 1)

	// A request repeating a (PK, SK) pair would be rejected wholesale,
	// so the two copies must have collapsed into the later one.
	requests := captured.RequestItems["papers"]
	require.Len(t, requests, 2)

	title, ok := requests[0].PutRequest.Item["title"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "corrected", title.Value)

	pk, ok := requests[1].PutRequest.Item["PK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "CATEGORY#cs.LG", pk.Value)
}

func TestUpsertBatch_RetriesUnprocessedItems(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	unprocessed := map[string][]types.WriteRequest{
		"papers": {{PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "CATEGORY#cs.AI"},
			"SK": &types.AttributeValueMemberS{Value: "2023-01-02#A0"},
		}}}},
	}

	client.On("BatchWriteItem", ctx, mock.Anything).
		Return(&awsdynamodb.BatchWriteItemOutput{UnprocessedItems: unprocessed}, nil).Once()
	client.On("BatchWriteItem", ctx, mock.Anything).
		Return(&awsdynamodb.BatchWriteItemOutput{}, nil).Once()

	err := store.UpsertBatch(ctx, testItems(2))

	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "BatchWriteItem", 2)
}

func TestUpsertBatch_EmptyInputIsNoOp(t *testing.T) {
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	require.NoError(t, store.UpsertBatch(context.Background(), nil))
	client.AssertNotCalled(t, "BatchWriteItem")
}

func TestQueryByPartition_BuildsDescendingLimitedQuery(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	client.On("Query", ctx, mock.MatchedBy(func(input *awsdynamodb.QueryInput) bool {
		return aws.ToString(input.TableName) == "papers" &&
			input.IndexName == nil &&
			input.ScanIndexForward != nil && !*input.ScanIndexForward &&
			aws.ToInt32(input.Limit) == 20 &&
			hasStringValue(input.ExpressionAttributeValues, "CATEGORY#cs.AI")
	})).Return(&awsdynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{"arxiv_id": &types.AttributeValueMemberS{Value: "A1"}},
	}}, nil)

	items, err := store.QueryByPartition(ctx, "CATEGORY#cs.AI", "", true, 20)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A1", items[0].ArxivID)
	client.AssertExpectations(t)
}

func TestQueryByPartition_UsesSecondaryIndexKeyAttributes(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	client.On("Query", ctx, mock.MatchedBy(func(input *awsdynamodb.QueryInput) bool {
		if aws.ToString(input.IndexName) != paper.AuthorIndex {
			return false
		}
		for _, attr := range input.ExpressionAttributeNames {
			if attr == "GSI1PK" {
				return true
			}
		}
		return false
	})).Return(&awsdynamodb.QueryOutput{}, nil)

	_, err := store.QueryByPartition(ctx, "AUTHOR#X Y", paper.AuthorIndex, false, 0)

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestQueryByPartition_FollowsContinuationKeys(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	lastKey := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "AUTHOR#X Y"},
	}
	client.On("Query", ctx, mock.Anything).Return(&awsdynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{{"arxiv_id": &types.AttributeValueMemberS{Value: "A1"}}},
		LastEvaluatedKey: lastKey,
	}, nil).Once()
	client.On("Query", ctx, mock.Anything).Return(&awsdynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{"arxiv_id": &types.AttributeValueMemberS{Value: "A2"}}},
	}, nil).Once()

	items, err := store.QueryByPartition(ctx, "AUTHOR#X Y", paper.AuthorIndex, false, 0)

	require.NoError(t, err)
	assert.Len(t, items, 2)
	client.AssertNumberOfCalls(t, "Query", 2)
}

func TestQueryByRange_CarriesBothBounds(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	client.On("Query", ctx, mock.MatchedBy(func(input *awsdynamodb.QueryInput) bool {
		return hasStringValue(input.ExpressionAttributeValues, "2023-01-01#") &&
			hasStringValue(input.ExpressionAttributeValues, "2023-01-31#￿") &&
			hasStringValue(input.ExpressionAttributeValues, "CATEGORY#cs.AI")
	})).Return(&awsdynamodb.QueryOutput{}, nil)

	_, err := store.QueryByRange(ctx, "CATEGORY#cs.AI", "2023-01-01#", "2023-01-31#￿", "")

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestEnsureSchema_ExistingTableIsNoOp(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	client.On("DescribeTable", ctx, mock.Anything).Return(&awsdynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableStatus: types.TableStatusActive},
	}, nil)

	require.NoError(t, store.EnsureSchema(ctx))
	client.AssertNotCalled(t, "CreateTable")
}

func TestEnsureSchema_CreatesTableWithThreeIndexes(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	notFound := &types.ResourceNotFoundException{}
	client.On("DescribeTable", ctx, mock.Anything).Return(nil, notFound).Once()

	var created *awsdynamodb.CreateTableInput
	client.On("CreateTable", ctx, mock.Anything).Return(&awsdynamodb.CreateTableOutput{}, nil).Run(func(args mock.Arguments) {
		created = args.Get(1).(*awsdynamodb.CreateTableInput)
	})

	active := &awsdynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableStatus: types.TableStatusActive,
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndexDescription{
			{IndexName: aws.String(paper.AuthorIndex), IndexStatus: types.IndexStatusActive},
			{IndexName: aws.String(paper.PaperIDIndex), IndexStatus: types.IndexStatusActive},
			{IndexName: aws.String(paper.KeywordIndex), IndexStatus: types.IndexStatusActive},
		},
	}}
	client.On("DescribeTable", ctx, mock.Anything).Return(active, nil)

	err := store.EnsureSchema(ctx)

	require.NoError(t, err)
	require.NotNil(t, created)
	require.Len(t, created.GlobalSecondaryIndexes, 3)

	names := make([]string, 0, 3)
	for _, gsi := range created.GlobalSecondaryIndexes {
		names = append(names, aws.ToString(gsi.IndexName))
		assert.Equal(t, types.ProjectionTypeAll, gsi.Projection.ProjectionType)
	}
	assert.ElementsMatch(t, []string{paper.AuthorIndex, paper.PaperIDIndex, paper.KeywordIndex}, names)
}

func TestEnsureSchema_ReportsSchemaNotReadyWhenIndexesStallPending(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())
	store.waitAttempts = 3
	store.waitInterval = time.Millisecond

	client.On("DescribeTable", ctx, mock.Anything).Return(nil, &types.ResourceNotFoundException{}).Once()
	client.On("CreateTable", ctx, mock.Anything).Return(&awsdynamodb.CreateTableOutput{}, nil)

	creating := &awsdynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableStatus: types.TableStatusActive,
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndexDescription{
			{IndexName: aws.String(paper.AuthorIndex), IndexStatus: types.IndexStatusCreating},
		},
	}}
	client.On("DescribeTable", ctx, mock.Anything).Return(creating, nil)

	err := store.EnsureSchema(ctx)

	require.Error(t, err)
	assert.True(t, apperrors.IsSchemaNotReady(err))
	// One existence probe plus one describe per poll attempt.
	client.AssertNumberOfCalls(t, "DescribeTable", 4)
}

func TestEnsureSchema_CreateRejectionIsFatal(t *testing.T) {
	ctx := context.Background()
	client := new(mockAPI)
	store := NewStore(client, "papers", zap.NewNop())

	client.On("DescribeTable", ctx, mock.Anything).Return(nil, &types.ResourceNotFoundException{})
	client.On("CreateTable", ctx, mock.Anything).Return(nil, &types.ResourceInUseException{})

	err := store.EnsureSchema(ctx)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabase))
	client.AssertNumberOfCalls(t, "CreateTable", 1)
}
