// Package dynamodb implements the durable store for denormalized paper
// items: one table keyed by (PK, SK) plus three global secondary indexes,
// with idempotent batched upserts and two range-query paths.
package dynamodb

import (
	"context"
	"time"

	"paperstore/domain/paper"
	apperrors "paperstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	// maxBatchSize is the DynamoDB limit per BatchWriteItem request.
	maxBatchSize = 25

	// maxWriteRetries bounds re-submission of unprocessed batch items.
	maxWriteRetries = 3
)

// API is the subset of the DynamoDB client the store depends on.
type API interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store provides idempotent batched writes and key-range reads over the
// paper item table.
type Store struct {
	client       API
	tableName    string
	batchSize    int
	waitAttempts int
	waitInterval time.Duration
	logger       *zap.Logger
}

// NewStore creates a new Store
func NewStore(client API, tableName string, logger *zap.Logger) *Store {
	return &Store{
		client:       client,
		tableName:    tableName,
		batchSize:    maxBatchSize,
		waitAttempts: schemaWaitMaxAttempts,
		waitInterval: schemaWaitInterval,
		logger:       logger,
	}
}

// keyAttrs maps an index name to its partition/sort attribute pair. The
// empty name selects the primary key space.
func keyAttrs(indexName string) (pk, sk string) {
	switch indexName {
	case paper.AuthorIndex:
		return "GSI1PK", "GSI1SK"
	case paper.PaperIDIndex:
		return "GSI2PK", "GSI2SK"
	case paper.KeywordIndex:
		return "GSI3PK", "GSI3SK"
	default:
		return "PK", "SK"
	}
}

// UpsertBatch writes items in chunks, overwriting by (PK, SK) identity.
// Unprocessed items are resubmitted with exponential backoff. There is no
// all-or-nothing guarantee: on failure, chunks already written stay
// committed and the error is surfaced to the caller.
//
// Duplicate (PK, SK) pairs collapse last-write-wins before chunking.
// BatchWriteItem rejects a request whose put requests repeat a key, and
// the overwrite contract makes the later copy the one that counts anyway.
func (s *Store) UpsertBatch(ctx context.Context, items []paper.Item) error {
	if len(items) == 0 {
		return nil
	}

	deduped := make([]paper.Item, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		key := item.PK + "\x00" + item.SK
		if at, ok := seen[key]; ok {
			deduped[at] = item
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, item)
	}

	requests := make([]types.WriteRequest, 0, len(deduped))
	for _, item := range deduped {
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal item")
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	for i := 0; i < len(requests); i += s.batchSize {
		end := i + s.batchSize
		if end > len(requests) {
			end = len(requests)
		}
		if err := s.writeChunk(ctx, requests[i:end]); err != nil {
			return err
		}
	}

	return nil
}

// writeChunk submits a single batch, retrying unprocessed items.
func (s *Store) writeChunk(ctx context.Context, requests []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			s.tableName: requests,
		},
	}

	retryCount := 0
	for {
		output, err := s.client.BatchWriteItem(ctx, input)
		if err != nil {
			return apperrors.NewDatabaseError("batch write", err)
		}

		unprocessed := output.UnprocessedItems[s.tableName]
		if len(unprocessed) == 0 {
			return nil
		}

		if retryCount >= maxWriteRetries {
			s.logger.Error("max retries exceeded for batch write",
				zap.Int("unprocessed", len(unprocessed)))
			return apperrors.NewDatabaseError("batch write", nil).WithDetails(map[string]interface{}{
				"unprocessed": len(unprocessed),
				"retries":     retryCount,
			})
		}

		select {
		case <-time.After(time.Duration(1<<retryCount) * 100 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}

		input.RequestItems = map[string][]types.WriteRequest{
			s.tableName: unprocessed,
		}
		retryCount++
	}
}

// QueryByPartition returns all items under one partition key in sort-key
// order. An empty indexName queries the primary key space; limit <= 0
// means unbounded, following continuation keys across pages.
func (s *Store) QueryByPartition(ctx context.Context, partitionKey, indexName string, descending bool, limit int32) ([]paper.Item, error) {
	pkAttr, _ := keyAttrs(indexName)
	keyCond := expression.Key(pkAttr).Equal(expression.Value(partitionKey))
	return s.query(ctx, keyCond, indexName, descending, limit)
}

// QueryByRange returns items whose sort key falls lexicographically within
// the inclusive bounds.
func (s *Store) QueryByRange(ctx context.Context, partitionKey, sortKeyLow, sortKeyHigh, indexName string) ([]paper.Item, error) {
	pkAttr, skAttr := keyAttrs(indexName)
	keyCond := expression.Key(pkAttr).Equal(expression.Value(partitionKey)).
		And(expression.Key(skAttr).Between(expression.Value(sortKeyLow), expression.Value(sortKeyHigh)))
	return s.query(ctx, keyCond, indexName, false, 0)
}

func (s *Store) query(ctx context.Context, keyCond expression.KeyConditionBuilder, indexName string, descending bool, limit int32) ([]paper.Item, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build key condition")
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!descending),
	}
	if indexName != "" {
		input.IndexName = aws.String(indexName)
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	var items []paper.Item
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, apperrors.NewDatabaseError("query", err)
		}

		var page []paper.Item
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal items")
		}
		items = append(items, page...)

		if limit > 0 && int32(len(items)) >= limit {
			items = items[:limit]
			break
		}
		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	s.logger.Debug("query complete",
		zap.String("index", indexName),
		zap.Int("count", len(items)),
	)

	return items, nil
}
