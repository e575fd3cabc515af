// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/parser"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/service"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

// Ingester ingests one PDF document.
type Ingester interface {
	Ingest(ctx context.Context, data []byte) (*service.IngestResult, error)
}

// Inbox groups the directories the sweep reads from and files into.
type Inbox struct {
	Pending   storage.Storage
	Processed storage.Storage
	Failed    storage.Storage
}

// SweepResult summarizes one pass over the inbox.
type SweepResult struct {
	Processed int
	Failed    int
	Imported  int
	Updated   int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	inbox    Inbox
	ingester Ingester
	maxBytes int64
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a job scheduler that sweeps inbox on schedule.
func NewScheduler(ingester Ingester, inbox Inbox, schedule string, logger *slog.Logger) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:     c,
		schedule: schedule,
		inbox:    inbox,
		ingester: ingester,
		maxBytes: 32 << 20,
		timeout:  10 * time.Minute,
		logger:   logger,
	}
}

// WithMaxFileBytes limits the size of documents picked up by the sweep.
func (s *Scheduler) WithMaxFileBytes(n int64) *Scheduler {
	s.maxBytes = n
	return s
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweepJob)
	if err != nil {
		return fmt.Errorf("invalid inbox schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

func (s *Scheduler) sweepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("inbox sweep failed", slog.Any("error", err))
	}
}

// Sweep ingests every PDF waiting in the inbox, oldest first, and moves
// each one to the processed or failed directory.
func (s *Scheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	files, err := s.inbox.Pending.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list inbox: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !strings.EqualFold(filepath.Ext(f.Name), ".pdf") {
			continue
		}

		ingested, err := s.ingestFile(ctx, f)
		if err != nil {
			s.logger.Warn("inbox document rejected",
				slog.String("file", f.Name),
				slog.Any("error", err),
			)
			result.Failed++
			s.file(ctx, f.Name, s.inbox.Failed)
			continue
		}

		s.logger.Info("inbox document ingested",
			slog.String("file", f.Name),
			slog.Int("imported", ingested.Imported),
			slog.Int("updated", ingested.Updated),
		)
		result.Processed++
		result.Imported += ingested.Imported
		result.Updated += ingested.Updated
		s.file(ctx, f.Name, s.inbox.Processed)
	}

	if result.Processed+result.Failed > 0 {
		s.logger.Info("inbox sweep completed",
			slog.Int("processed", result.Processed),
			slog.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (s *Scheduler) ingestFile(ctx context.Context, f *storage.FileInfo) (*service.IngestResult, error) {
	if f.Size > s.maxBytes {
		return nil, fmt.Errorf("document is %d bytes, limit is %d", f.Size, s.maxBytes)
	}

	rc, _, err := s.inbox.Pending.Get(ctx, f.Name)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(rc, s.maxBytes+1))
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", s.maxBytes)
	}
	if !parser.IsPDF(data) {
		return nil, parser.ErrNotPDF
	}

	return s.ingester.Ingest(ctx, data)
}

// file moves name out of the inbox. A document that cannot be moved is
// left in place and retried on the next sweep.
func (s *Scheduler) file(ctx context.Context, name string, dst storage.Storage) {
	if _, err := storage.Move(ctx, s.inbox.Pending, dst, name); err != nil {
		s.logger.Error("failed to file inbox document",
			slog.String("file", name),
			slog.Any("error", err),
		)
	}
}
