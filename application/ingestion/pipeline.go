// Package ingestion drives the load path: raw feed records are
// normalized, fanned out into denormalized items, and upserted in
// batches.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"paperstore/domain/paper"
	"paperstore/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultFlushSize is how many accumulated items trigger a write.
const defaultFlushSize = 100

// Writer is the write side of the paper item store.
type Writer interface {
	UpsertBatch(ctx context.Context, items []paper.Item) error
}

// Stats reports the fan-out of one ingestion run. Observational only.
type Stats struct {
	RunID         string `json:"run_id"`
	Papers        int    `json:"papers"`
	Skipped       int    `json:"skipped"`
	TotalItems    int    `json:"total_items"`
	CategoryItems int    `json:"category_items"`
	AuthorItems   int    `json:"author_items"`
	KeywordItems  int    `json:"keyword_items"`
	PaperItems    int    `json:"paper_items"`
}

// Factor is the denormalization factor: items written per paper.
func (s Stats) Factor() float64 {
	if s.Papers == 0 {
		return 0
	}
	return float64(s.TotalItems) / float64(s.Papers)
}

func (s *Stats) count(item paper.Item) {
	s.TotalItems++
	switch item.ItemType {
	case paper.ItemTypeCategory:
		s.CategoryItems++
	case paper.ItemTypeAuthor:
		s.AuthorItems++
	case paper.ItemTypeKeyword:
		s.KeywordItems++
	case paper.ItemTypePaper:
		s.PaperItems++
	}
}

// Pipeline ingests a batch of raw records into the store.
type Pipeline struct {
	writer    Writer
	flushSize int
	logger    *zap.Logger
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(writer Writer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		writer:    writer,
		flushSize: defaultFlushSize,
		logger:    logger,
	}
}

// Run processes records sequentially: normalize, denormalize, accumulate,
// flush. Records without an identifier are skipped and counted; a write
// failure aborts the run but items already flushed stay committed.
func (p *Pipeline) Run(ctx context.Context, records []paper.RawRecord) (*Stats, error) {
	stats := &Stats{RunID: uuid.NewString()}

	p.logger.Info("ingestion started",
		zap.String("runID", stats.RunID),
		zap.Int("records", len(records)),
	)

	var pending []paper.Item
	for _, raw := range records {
		pp, err := paper.Normalize(raw)
		if err != nil {
			if errors.IsMissingIdentifier(err) {
				stats.Skipped++
				continue
			}
			return stats, err
		}

		stats.Papers++
		for _, item := range paper.Denormalize(pp) {
			stats.count(item)
			pending = append(pending, item)
		}

		if len(pending) >= p.flushSize {
			if err := p.writer.UpsertBatch(ctx, pending); err != nil {
				return stats, errors.Wrap(err, "ingestion write failed")
			}
			pending = pending[:0]
		}
	}

	if len(pending) > 0 {
		if err := p.writer.UpsertBatch(ctx, pending); err != nil {
			return stats, errors.Wrap(err, "ingestion write failed")
		}
	}

	p.logger.Info("ingestion complete",
		zap.String("runID", stats.RunID),
		zap.Int("papers", stats.Papers),
		zap.Int("skipped", stats.Skipped),
		zap.Int("totalItems", stats.TotalItems),
		zap.Int("categoryItems", stats.CategoryItems),
		zap.Int("authorItems", stats.AuthorItems),
		zap.Int("keywordItems", stats.KeywordItems),
		zap.Int("paperItems", stats.PaperItems),
		zap.Float64("denormalizationFactor", stats.Factor()),
	)

	return stats, nil
}

// LoadRecords reads the raw feed from a JSON file holding either a
// top-level array or an object with a "papers" array.
func LoadRecords(path string) ([]paper.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseRecords(data)
}

// ParseRecords decodes the two supported feed layouts.
func ParseRecords(data []byte) ([]paper.RawRecord, error) {
	var records []paper.RawRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Papers []paper.RawRecord `json:"papers"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Papers != nil {
		return wrapped.Papers, nil
	}

	return nil, fmt.Errorf("unsupported papers file format: expected an array or a \"papers\" object")
}
