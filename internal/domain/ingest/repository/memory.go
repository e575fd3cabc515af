package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

// ErrTxDone is returned when a finished memory transaction is used again.
var ErrTxDone = errors.New("transaction already committed or rolled back")

// MemoryLedgerRepository is an in-process LedgerRepository. One ingestion
// transaction holds the write lock from BeginIngest until Commit or Rollback.
type MemoryLedgerRepository struct {
	writer sync.Mutex // serializes ingest transactions
	mu     sync.RWMutex
	bySrc  map[string]*LedgerEntry
	now    func() time.Time
}

// NewMemoryLedgerRepository creates an empty in-memory repository
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		bySrc: make(map[string]*LedgerEntry),
		now:   time.Now,
	}
}

// BeginIngest blocks until no other ingestion is in flight.
func (r *MemoryLedgerRepository) BeginIngest(ctx context.Context) (IngestTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.writer.Lock()
	return &memoryIngestTx{repo: r}, nil
}

// GetEntryBySourceID returns a copy of the entry
func (r *MemoryLedgerRepository) GetEntryBySourceID(_ context.Context, sourceID string) (*LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.bySrc[sourceID]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

// ListEntries returns copies of all entries, newest date first
func (r *MemoryLedgerRepository) ListEntries(_ context.Context) ([]*LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*LedgerEntry, 0, len(r.bySrc))
	for _, e := range r.bySrc {
		c := *e
		entries = append(entries, &c)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].SourceID < entries[j].SourceID
	})
	return entries, nil
}

// undo restores one source id to its state before the transaction.
type undo struct {
	sourceID string
	previous *LedgerEntry // nil when the entry did not exist
}

type memoryIngestTx struct {
	repo *MemoryLedgerRepository
	log  []undo
	done bool
}

func (t *memoryIngestTx) FindBySourceID(ctx context.Context, sourceID string) (*LedgerEntry, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return t.repo.GetEntryBySourceID(ctx, sourceID)
}

func (t *memoryIngestTx) UpdateEntry(_ context.Context, id uuid.UUID, rec model.Record) error {
	if t.done {
		return ErrTxDone
	}
	r := t.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.bySrc[rec.SourceID]
	if !ok || e.ID != id {
		return fmt.Errorf("failed to update ledger entry %s: not found", id)
	}
	prev := *e
	t.log = append(t.log, undo{sourceID: rec.SourceID, previous: &prev})

	e.Apply(rec)
	e.UpdatedAt = r.now()
	return nil
}

func (t *memoryIngestTx) InsertEntry(_ context.Context, rec model.Record) (bool, error) {
	if t.done {
		return false, ErrTxDone
	}
	r := t.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now()
	if e, ok := r.bySrc[rec.SourceID]; ok {
		prev := *e
		t.log = append(t.log, undo{sourceID: rec.SourceID, previous: &prev})
		e.Apply(rec)
		e.UpdatedAt = ts
		return false, nil
	}

	e := NewLedgerEntry(rec)
	e.CreatedAt = ts
	e.UpdatedAt = ts
	r.bySrc[rec.SourceID] = e
	t.log = append(t.log, undo{sourceID: rec.SourceID})
	return true, nil
}

func (t *memoryIngestTx) Commit(context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.finish()
	return nil
}

// Rollback replays the undo log backwards. Calling it after Commit is a no-op.
func (t *memoryIngestTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	r := t.repo
	r.mu.Lock()
	for i := len(t.log) - 1; i >= 0; i-- {
		u := t.log[i]
		if u.previous == nil {
			delete(r.bySrc, u.sourceID)
			continue
		}
		r.bySrc[u.sourceID] = u.previous
	}
	r.mu.Unlock()
	t.finish()
	return nil
}

func (t *memoryIngestTx) finish() {
	t.done = true
	t.log = nil
	t.repo.writer.Unlock()
}
