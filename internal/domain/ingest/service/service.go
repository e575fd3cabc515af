// Package service provides the ledger ingestion orchestration logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/events"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/parser"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/repository"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/snapshot"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/service"

// Extractor recovers raw rows from a PDF document.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*parser.ParseResult, error)
}

// SnapshotWriter captures diagnostic copies of an ingestion run.
type SnapshotWriter interface {
	New(source string, raw []model.RawRow, records []model.Record, audit normalizer.Audit) snapshot.Snapshot
	Write(ctx context.Context, snap snapshot.Snapshot) ([]*storage.FileInfo, error)
}

// IngestResult contains the outcome of one ingestion. Only the write counts
// are part of the serialized result.
type IngestResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`

	Source      parser.Source    `json:"-"`
	RowsDropped int              `json:"-"`
	Duplicates  []string         `json:"-"`
	Corrections normalizer.Audit `json:"-"`
	SnapshotID  string           `json:"-"`
}

// Written returns the number of stored rows touched.
func (r *IngestResult) Written() int {
	return r.Imported + r.Updated
}

// IngestService turns PDF ledger reports into stored ledger entries.
type IngestService struct {
	extractor  Extractor
	normalizer *normalizer.Normalizer
	repo       repository.LedgerRepository
	snapshots  SnapshotWriter // Optional: nil disables snapshots
	publisher  events.Publisher
	metrics    *Metrics // Optional
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewIngestService creates a new ingestion service
func NewIngestService(extractor Extractor, repo repository.LedgerRepository, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		extractor:  extractor,
		normalizer: normalizer.New(),
		repo:       repo,
		publisher:  events.NopPublisher{},
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
	}
}

// WithNormalizer replaces the default normalizer
func (s *IngestService) WithNormalizer(n *normalizer.Normalizer) *IngestService {
	s.normalizer = n
	return s
}

// WithSnapshotWriter enables raw and normalized snapshots
func (s *IngestService) WithSnapshotWriter(w SnapshotWriter) *IngestService {
	s.snapshots = w
	return s
}

// WithPublisher adds event publishing after committed ingestions
func (s *IngestService) WithPublisher(p events.Publisher) *IngestService {
	s.publisher = p
	return s
}

// WithMetrics adds prometheus instrumentation
func (s *IngestService) WithMetrics(m *Metrics) *IngestService {
	s.metrics = m
	return s
}

// WithTracer replaces the global tracer
func (s *IngestService) WithTracer(t trace.Tracer) *IngestService {
	s.tracer = t
	return s
}

// Ingest extracts ledger rows from a PDF, normalizes them and upserts them
// by source id inside a single store transaction. A document with no rows
// is not an error and results in zero writes.
func (s *IngestService) Ingest(ctx context.Context, data []byte) (result *IngestResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.ingest", trace.WithAttributes(
		attribute.Int("pdf.size_bytes", len(data)),
	))
	failedStage := ""
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.metrics.failed(failedStage)
		}
		span.End()
		s.metrics.observe(time.Since(start))
	}()

	parsed, err := s.extractor.Extract(ctx, data)
	if err != nil {
		failedStage = stageExtract
		return nil, fmt.Errorf("failed to extract ledger rows: %w", err)
	}

	records, audit := s.normalizer.Records(parsed.Rows)
	result = &IngestResult{
		Source:      parsed.Source,
		RowsDropped: parsed.SkippedRows,
		Duplicates:  duplicateSourceIDs(records),
		Corrections: audit,
	}
	span.SetAttributes(
		attribute.String("ledger.source", string(parsed.Source)),
		attribute.Int("ledger.records", len(records)),
	)

	if len(result.Duplicates) > 0 {
		// last occurrence wins
		s.logger.Warn("document repeats source ids",
			"duplicates", result.Duplicates,
			"count", len(result.Duplicates))
	}
	if audit.Len() > 0 {
		s.logger.Debug("normalization defaulted fields",
			"corrections", audit.Len(),
			"by_field", audit.Fields())
	}

	s.writeSnapshot(ctx, parsed, records, result)

	if len(records) == 0 {
		s.logger.Info("no ledger rows found",
			"source", parsed.Source,
			"rows_dropped", parsed.SkippedRows)
		s.metrics.recorded(result)
		return result, nil
	}

	if err := s.store(ctx, records, result); err != nil {
		failedStage = stageStore
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("ledger.imported", result.Imported),
		attribute.Int("ledger.updated", result.Updated),
	)
	s.metrics.recorded(result)

	s.publish(ctx, records, result)

	first, last := parsed.SourceIDRange()
	s.logger.Info("ledger ingested",
		"source", parsed.Source,
		"imported", result.Imported,
		"updated", result.Updated,
		"rows_dropped", result.RowsDropped,
		"first_source_id", first,
		"last_source_id", last,
		"duration", time.Since(start))

	return result, nil
}

// store applies records in document order. Any failure rolls back the
// whole batch.
func (s *IngestService) store(ctx context.Context, records []model.Record, result *IngestResult) error {
	tx, err := s.repo.BeginIngest(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin ingestion: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		existing, err := tx.FindBySourceID(ctx, rec.SourceID)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", rec.SourceID, err)
		}

		if existing != nil {
			if err := tx.UpdateEntry(ctx, existing.ID, rec); err != nil {
				return fmt.Errorf("failed to update %s: %w", rec.SourceID, err)
			}
			result.Updated++
			continue
		}

		created, err := tx.InsertEntry(ctx, rec)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", rec.SourceID, err)
		}
		if created {
			result.Imported++
		} else {
			// a concurrent writer stored it first
			result.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ingestion: %w", err)
	}
	return nil
}

func (s *IngestService) writeSnapshot(ctx context.Context, parsed *parser.ParseResult, records []model.Record, result *IngestResult) {
	if s.snapshots == nil {
		return
	}
	snap := s.snapshots.New(string(parsed.Source), parsed.Rows, records, result.Corrections)
	result.SnapshotID = snap.RunID
	if _, err := s.snapshots.Write(ctx, snap); err != nil {
		s.logger.Warn("failed to write snapshot", "run_id", snap.RunID, "error", err)
	}
}

func (s *IngestService) publish(ctx context.Context, records []model.Record, result *IngestResult) {
	if result.Written() == 0 {
		return
	}
	event := events.NewLedgerIngested(result.Imported, result.Updated, string(result.Source), uniqueSourceIDs(records))
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish ingestion event", "error", err)
	}
}

// duplicateSourceIDs returns the source ids that occur more than once, in
// order of their second occurrence.
func duplicateSourceIDs(records []model.Record) []string {
	seen := make(map[string]int, len(records))
	var dups []string
	for _, r := range records {
		seen[r.SourceID]++
		if seen[r.SourceID] == 2 {
			dups = append(dups, r.SourceID)
		}
	}
	return dups
}

func uniqueSourceIDs(records []model.Record) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.SourceID]; ok {
			continue
		}
		seen[r.SourceID] = struct{}{}
		ids = append(ids, r.SourceID)
	}
	return ids
}
