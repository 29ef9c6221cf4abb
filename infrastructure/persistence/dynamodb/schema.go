package dynamodb

import (
	"context"
	"errors"
	"time"

	"paperstore/domain/paper"
	apperrors "paperstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	readCapacityUnits  = 5
	writeCapacityUnits = 5

	// schemaWaitMaxAttempts bounds the readiness poll; exhausting it
	// yields a SchemaNotReady error instead of waiting forever.
	schemaWaitMaxAttempts = 60
	schemaWaitInterval    = 5 * time.Second
)

// EnsureSchema creates the table and its three secondary indexes if
// absent, then blocks until every index reports ACTIVE. A table that
// already exists is used as-is. Creation rejection is fatal and not
// retried.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err == nil {
		s.logger.Info("using existing table", zap.String("table", s.tableName))
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return apperrors.NewDatabaseError("describe table", err)
	}

	s.logger.Info("creating table", zap.String("table", s.tableName))

	if _, err := s.client.CreateTable(ctx, s.createTableInput()); err != nil {
		return apperrors.NewDatabaseError("create table", err)
	}

	return s.waitForSchemaReady(ctx)
}

func (s *Store) createTableInput() *dynamodb.CreateTableInput {
	throughput := &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(readCapacityUnits),
		WriteCapacityUnits: aws.Int64(writeCapacityUnits),
	}

	stringAttr := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		}
	}

	gsi := func(name, pk, sk string) types.GlobalSecondaryIndex {
		return types.GlobalSecondaryIndex{
			IndexName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(sk), KeyType: types.KeyTypeRange},
			},
			Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: throughput,
		}
	}

	return &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			stringAttr("PK"), stringAttr("SK"),
			stringAttr("GSI1PK"), stringAttr("GSI1SK"),
			stringAttr("GSI2PK"), stringAttr("GSI2SK"),
			stringAttr("GSI3PK"), stringAttr("GSI3SK"),
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(paper.AuthorIndex, "GSI1PK", "GSI1SK"),
			gsi(paper.PaperIDIndex, "GSI2PK", "GSI2SK"),
			gsi(paper.KeywordIndex, "GSI3PK", "GSI3SK"),
		},
		ProvisionedThroughput: throughput,
	}
}

// waitForSchemaReady polls DescribeTable until the table and every
// secondary index report ACTIVE, up to the attempt ceiling.
func (s *Store) waitForSchemaReady(ctx context.Context) error {
	for attempt := 1; attempt <= s.waitAttempts; attempt++ {
		out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(s.tableName),
		})
		if err == nil && schemaActive(out.Table) {
			s.logger.Info("table and indexes active", zap.String("table", s.tableName))
			return nil
		}

		if err != nil {
			var notFound *types.ResourceNotFoundException
			if !errors.As(err, &notFound) {
				return apperrors.NewDatabaseError("describe table", err)
			}
			// Newly created tables can briefly describe as missing.
		}

		s.logger.Info("waiting for secondary indexes",
			zap.String("table", s.tableName),
			zap.Int("attempt", attempt),
		)

		select {
		case <-time.After(s.waitInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return apperrors.NewSchemaNotReadyError(s.tableName)
}

func schemaActive(table *types.TableDescription) bool {
	if table == nil || table.TableStatus != types.TableStatusActive {
		return false
	}
	for _, gsi := range table.GlobalSecondaryIndexes {
		if gsi.IndexStatus != types.IndexStatusActive {
			return false
		}
	}
	return true
}
