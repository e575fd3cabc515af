// Package parser recovers ledger rows from PDF documents.
// Rows come from detected tables when possible and from the document's
// plain text otherwise.
package parser

import (
	"context"
	"errors"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

var (
	// ErrNoTableData means the document has no tables that produced rows.
	ErrNoTableData = errors.New("no usable table data")
	// ErrEmptyDocument means neither extraction stage produced rows.
	ErrEmptyDocument = errors.New("document contains no ledger rows")
	// ErrExtractionFailed means the document could not be read at all.
	ErrExtractionFailed = errors.New("pdf extraction failed")
)

// Table is a detected table: rows of cell text.
type Table struct {
	Page int
	Rows [][]string
}

// Document exposes the two primitives of the structure extraction collaborator.
// Either may fail or return empty results.
type Document interface {
	Tables(ctx context.Context) ([]Table, error)
	Text(ctx context.Context) (string, error)
}

// DocumentOpener turns raw bytes into a Document.
type DocumentOpener interface {
	Open(ctx context.Context, data []byte) (Document, error)
}

// Source names the extraction stage that produced a ParseResult.
type Source string

const (
	SourceNone  Source = "none"
	SourceTable Source = "table"
	SourceText  Source = "text"
)

// ParseResult contains extracted rows and per-stage counters.
type ParseResult struct {
	Rows        []model.RawRow
	Source      Source
	TotalRows   int // candidate rows inspected
	ParsedRows  int
	SkippedRows int
}

func (r *ParseResult) accept(row model.RawRow) {
	r.Rows = append(r.Rows, row)
	r.ParsedRows++
}

func (r *ParseResult) skip() {
	r.SkippedRows++
}

// Empty reports whether no rows were recovered.
func (r *ParseResult) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// SourceIDRange returns the first and last source ids, for logging.
func (r *ParseResult) SourceIDRange() (first, last string) {
	if r.Empty() {
		return "", ""
	}
	return r.Rows[0].SourceID, r.Rows[len(r.Rows)-1].SourceID
}
