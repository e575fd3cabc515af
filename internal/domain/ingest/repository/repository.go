// Package repository provides persistence for ledger entries.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

// LedgerEntry is a persisted ledger row
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id"`
	SourceID    string          `json:"source_id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Status      model.Status    `json:"status"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewLedgerEntry builds an unsaved entry from a normalized record.
func NewLedgerEntry(rec model.Record) *LedgerEntry {
	e := &LedgerEntry{ID: uuid.New(), SourceID: rec.SourceID}
	e.Apply(rec)
	return e
}

// Apply overwrites the mutable fields with rec. SourceID and ID are kept.
func (e *LedgerEntry) Apply(rec model.Record) {
	e.Date = rec.Date
	e.Category = rec.Category
	e.Amount = rec.Amount
	e.Status = rec.Status
	e.Description = rec.Description
}

// Record returns the entry's normalized fields.
func (e *LedgerEntry) Record() model.Record {
	return model.Record{
		SourceID:    e.SourceID,
		Date:        e.Date,
		Category:    e.Category,
		Amount:      e.Amount,
		Status:      e.Status,
		Description: e.Description,
	}
}

// LedgerRepository defines the interface for ledger persistence
type LedgerRepository interface {
	// BeginIngest opens the unit of work that scopes one ingestion call.
	BeginIngest(ctx context.Context) (IngestTx, error)

	// Reads
	GetEntryBySourceID(ctx context.Context, sourceID string) (*LedgerEntry, error)
	ListEntries(ctx context.Context) ([]*LedgerEntry, error)
}

// IngestTx is the read-then-write unit used by ingestion. Operations are
// called sequentially by a single goroutine.
type IngestTx interface {
	// FindBySourceID returns nil, nil when no entry exists.
	FindBySourceID(ctx context.Context, sourceID string) (*LedgerEntry, error)
	UpdateEntry(ctx context.Context, id uuid.UUID, rec model.Record) error
	// InsertEntry inserts rec. When a concurrent writer inserted the same
	// source id first, the existing entry is overwritten and created is false.
	InsertEntry(ctx context.Context, rec model.Record) (created bool, err error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
