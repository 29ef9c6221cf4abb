// Package queries translates the five paper access patterns into key-range
// queries against the store. All operations are read-only.
package queries

import (
	"context"
	"strings"

	"paperstore/domain/paper"
	"paperstore/pkg/errors"

	"go.uber.org/zap"
)

// DefaultLimit applies when a caller passes no limit for the bounded
// access patterns.
const DefaultLimit = 20

// rangeUpperSuffix closes a date-range query inclusively on the end date:
// U+FFFF sorts after every byte an identifier can contain, so
// "<end>#￿" is an upper bound covering all papers published that day.
const rangeUpperSuffix = "#￿"

// Store is the read side of the paper item store.
type Store interface {
	QueryByPartition(ctx context.Context, partitionKey, indexName string, descending bool, limit int32) ([]paper.Item, error)
	QueryByRange(ctx context.Context, partitionKey, sortKeyLow, sortKeyHigh, indexName string) ([]paper.Item, error)
}

// Service executes the five access patterns.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new query service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// RecentInCategory returns the newest papers in a category, newest first.
// Served by the primary key space with the sort key scanned descending.
func (s *Service) RecentInCategory(ctx context.Context, category string, limit int32) ([]paper.Item, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.logger.Debug("querying recent papers",
		zap.String("category", category),
		zap.Int32("limit", limit),
	)
	return s.store.QueryByPartition(ctx, paper.CategoryPK(category), "", true, limit)
}

// ByAuthor returns all papers by an author in chronological order, served
// by the author index.
func (s *Service) ByAuthor(ctx context.Context, author string) ([]paper.Item, error) {
	s.logger.Debug("querying papers by author", zap.String("author", author))
	return s.store.QueryByPartition(ctx, paper.AuthorPK(author), paper.AuthorIndex, false, 0)
}

// ByID looks up a single paper by identifier via the paper ID index. An
// unknown identifier is a NotFound error, distinct from a store failure.
func (s *Service) ByID(ctx context.Context, id string) (*paper.Item, error) {
	items, err := s.store.QueryByPartition(ctx, paper.PaperPK(id), paper.PaperIDIndex, false, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		s.logger.Debug("paper not found", zap.String("paperID", id))
		return nil, errors.NewNotFoundError("paper")
	}
	return &items[0], nil
}

// InDateRange returns papers in a category published within the inclusive
// [startDate, endDate] calendar range, oldest first.
func (s *Service) InDateRange(ctx context.Context, category, startDate, endDate string) ([]paper.Item, error) {
	s.logger.Debug("querying papers in date range",
		zap.String("category", category),
		zap.String("start", startDate),
		zap.String("end", endDate),
	)
	return s.store.QueryByRange(ctx,
		paper.CategoryPK(category),
		startDate+"#",
		endDate+rangeUpperSuffix,
		"",
	)
}

// ByKeyword returns the newest papers classified under a keyword, served
// by the keyword index. Keywords are stored lowercase.
func (s *Service) ByKeyword(ctx context.Context, keyword string, limit int32) ([]paper.Item, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.logger.Debug("querying papers by keyword", zap.String("keyword", keyword))
	return s.store.QueryByPartition(ctx, paper.KeywordPK(strings.ToLower(keyword)), paper.KeywordIndex, true, limit)
}
