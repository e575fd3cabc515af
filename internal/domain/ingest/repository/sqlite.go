package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

const sqliteTimeLayout = time.RFC3339Nano

// SQLiteLedgerRepository implements LedgerRepository on database/sql with
// the modernc.org/sqlite driver. Dates and amounts are stored as text.
type SQLiteLedgerRepository struct {
	db *sql.DB
}

// NewSQLiteLedgerRepository creates a new SQLite ledger repository
func NewSQLiteLedgerRepository(db *sql.DB) *SQLiteLedgerRepository {
	return &SQLiteLedgerRepository{db: db}
}

// BeginIngest starts a write transaction. Open the database with
// _txlock=immediate so concurrent ingestions serialize on BEGIN.
func (r *SQLiteLedgerRepository) BeginIngest(ctx context.Context) (IngestTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	return &sqliteIngestTx{tx: tx}, nil
}

// GetEntryBySourceID retrieves an entry by its external identifier
func (r *SQLiteLedgerRepository) GetEntryBySourceID(ctx context.Context, sourceID string) (*LedgerEntry, error) {
	query := `SELECT ` + sqliteEntryColumns + ` FROM ledger_entries WHERE source_id = ?`

	entry, err := scanSQLiteEntry(r.db.QueryRowContext(ctx, query, sourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// ListEntries retrieves all entries, newest date first
func (r *SQLiteLedgerRepository) ListEntries(ctx context.Context) ([]*LedgerEntry, error) {
	query := `SELECT ` + sqliteEntryColumns + ` FROM ledger_entries ORDER BY date DESC, source_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		entry, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const sqliteEntryColumns = `id, source_id, date, category, amount, status, description, created_at, updated_at`

type sqliteIngestTx struct {
	tx *sql.Tx
}

func (t *sqliteIngestTx) FindBySourceID(ctx context.Context, sourceID string) (*LedgerEntry, error) {
	query := `SELECT ` + sqliteEntryColumns + ` FROM ledger_entries WHERE source_id = ?`

	entry, err := scanSQLiteEntry(t.tx.QueryRowContext(ctx, query, sourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entry: %w", err)
	}
	return entry, nil
}

func (t *sqliteIngestTx) UpdateEntry(ctx context.Context, id uuid.UUID, rec model.Record) error {
	query := `
		UPDATE ledger_entries
		SET date = ?, category = ?, amount = ?, status = ?, description = ?, updated_at = ?
		WHERE id = ?`

	result, err := t.tx.ExecContext(ctx, query,
		rec.DateString(),
		rec.Category,
		rec.Amount.StringFixed(2),
		string(rec.Status),
		rec.Description,
		now(),
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update ledger entry %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (t *sqliteIngestTx) InsertEntry(ctx context.Context, rec model.Record) (bool, error) {
	query := `
		INSERT INTO ledger_entries (id, source_id, date, category, amount, status, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO NOTHING`

	ts := now()
	result, err := t.tx.ExecContext(ctx, query,
		uuid.New().String(),
		rec.SourceID,
		rec.DateString(),
		rec.Category,
		rec.Amount.StringFixed(2),
		string(rec.Status),
		rec.Description,
		ts,
		ts,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// another writer got there first
	query = `
		UPDATE ledger_entries
		SET date = ?, category = ?, amount = ?, status = ?, description = ?, updated_at = ?
		WHERE source_id = ?`
	if _, err := t.tx.ExecContext(ctx, query,
		rec.DateString(),
		rec.Category,
		rec.Amount.StringFixed(2),
		string(rec.Status),
		rec.Description,
		now(),
		rec.SourceID,
	); err != nil {
		return false, fmt.Errorf("failed to update conflicting ledger entry: %w", err)
	}
	return false, nil
}

func (t *sqliteIngestTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *sqliteIngestTx) Rollback(context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func now() string {
	return time.Now().UTC().Format(sqliteTimeLayout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row rowScanner) (*LedgerEntry, error) {
	var (
		e                    LedgerEntry
		id, date, amount     string
		status               string
		description          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &e.SourceID, &date, &e.Category, &amount, &status, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", id, err)
	}
	if e.Date, err = time.Parse(model.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if e.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if e.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	e.Status = model.Status(status)
	if description.Valid {
		e.Description = &description.String
	}
	return &e, nil
}
