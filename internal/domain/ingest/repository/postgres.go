package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

// PgxDB is the subset of *pgxpool.Pool the repository needs.
type PgxDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const entryColumns = `id, source_id, date, category, amount::text, status, description, created_at, updated_at`

// PostgresLedgerRepository implements LedgerRepository using PostgreSQL
type PostgresLedgerRepository struct {
	db PgxDB
}

// NewPostgresLedgerRepository creates a new PostgreSQL ledger repository
func NewPostgresLedgerRepository(db PgxDB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

// BeginIngest starts a transaction
func (r *PostgresLedgerRepository) BeginIngest(ctx context.Context) (IngestTx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	return &postgresIngestTx{tx: tx}, nil
}

// GetEntryBySourceID retrieves an entry by its external identifier
func (r *PostgresLedgerRepository) GetEntryBySourceID(ctx context.Context, sourceID string) (*LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE source_id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, sourceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// ListEntries retrieves all entries, newest date first
func (r *PostgresLedgerRepository) ListEntries(ctx context.Context) ([]*LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY date DESC, source_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type postgresIngestTx struct {
	tx pgx.Tx
}

// FindBySourceID locks the row so a concurrent ingestion waits for this one.
func (t *postgresIngestTx) FindBySourceID(ctx context.Context, sourceID string) (*LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE source_id = $1 FOR UPDATE`

	entry, err := scanEntry(t.tx.QueryRow(ctx, query, sourceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entry: %w", err)
	}
	return entry, nil
}

func (t *postgresIngestTx) UpdateEntry(ctx context.Context, id uuid.UUID, rec model.Record) error {
	query := `
		UPDATE ledger_entries
		SET date = $2, category = $3, amount = $4, status = $5, description = $6, updated_at = NOW()
		WHERE id = $1`

	result, err := t.tx.Exec(ctx, query,
		id,
		rec.Date,
		rec.Category,
		rec.Amount.StringFixed(2),
		string(rec.Status),
		rec.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to update ledger entry %s: %w", id, pgx.ErrNoRows)
	}
	return nil
}

// InsertEntry relies on the unique source_id constraint. xmax is zero only
// for a freshly inserted tuple, so it tells inserts and conflict updates apart.
func (t *postgresIngestTx) InsertEntry(ctx context.Context, rec model.Record) (bool, error) {
	query := `
		INSERT INTO ledger_entries (id, source_id, date, category, amount, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_id) DO UPDATE SET
			date = EXCLUDED.date,
			category = EXCLUDED.category,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			description = EXCLUDED.description,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := t.tx.QueryRow(ctx, query,
		uuid.New(),
		rec.SourceID,
		rec.Date,
		rec.Category,
		rec.Amount.StringFixed(2),
		string(rec.Status),
		rec.Description,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return inserted, nil
}

func (t *postgresIngestTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *postgresIngestTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func scanEntry(row pgx.Row) (*LedgerEntry, error) {
	var (
		e      LedgerEntry
		amount string
		status string
		date   time.Time
	)
	err := row.Scan(
		&e.ID,
		&e.SourceID,
		&date,
		&e.Category,
		&amount,
		&status,
		&e.Description,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Date = model.CivilDate(date.Year(), date.Month(), date.Day())
	e.Status = model.Status(status)
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return &e, nil
}
