package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Stage is one extraction attempt. A stage that finds nothing returns an
// empty result or ErrNoTableData; any other error aborts the pipeline.
type Stage interface {
	Extract(ctx context.Context, doc Document) (*ParseResult, error)
}

// Pipeline opens a document and runs stages in order until one yields rows.
type Pipeline struct {
	opener DocumentOpener
	stages []Stage
	logger *slog.Logger
}

// NewPipeline creates the default table-then-text pipeline.
func NewPipeline(opener DocumentOpener, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		opener: opener,
		stages: []Stage{
			NewTableExtractor(logger),
			NewTextExtractor(logger),
		},
		logger: logger,
	}
}

// WithStages replaces the extraction stages.
func (p *Pipeline) WithStages(stages ...Stage) *Pipeline {
	p.stages = stages
	return p
}

// Extract returns the rows of the first stage that produced any.
//
// An empty document yields a result with SourceNone and no error. Failing to
// open the document, or a stage failing outright, returns an error wrapping
// ErrExtractionFailed.
func (p *Pipeline) Extract(ctx context.Context, data []byte) (*ParseResult, error) {
	doc, err := p.opener.Open(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: open document: %w", ErrExtractionFailed, err)
	}

	dropped := 0
	for i, stage := range p.stages {
		result, err := stage.Extract(ctx, doc)
		switch {
		case errors.Is(err, ErrNoTableData):
			p.logger.Warn("table extraction found no rows, falling back", "stage", i, "error", err)
			if result != nil {
				dropped += result.SkippedRows
			}
			continue
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}

		if result.Empty() {
			if result != nil {
				dropped += result.SkippedRows
			}
			continue
		}

		first, last := result.SourceIDRange()
		p.logger.Debug("rows extracted",
			slog.String("source", string(result.Source)),
			slog.Int("rows", len(result.Rows)),
			slog.Int("skipped", result.SkippedRows),
			slog.String("first_source_id", first),
			slog.String("last_source_id", last),
		)
		return result, nil
	}

	p.logger.Warn("document produced no ledger rows", "error", ErrEmptyDocument)
	return &ParseResult{Source: SourceNone, SkippedRows: dropped}, nil
}
