package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

// runLedgerContract checks behaviour every LedgerRepository must share.
func runLedgerContract(t *testing.T, newRepo func(t *testing.T) LedgerRepository) {
	ctx := context.Background()

	t.Run("insert then find", func(t *testing.T) {
		repo := newRepo(t)
		tx, err := repo.BeginIngest(ctx)
		require.NoError(t, err)

		created, err := tx.InsertEntry(ctx, testRecord("INV-2025-001"))
		require.NoError(t, err)
		assert.True(t, created)

		found, err := tx.FindBySourceID(ctx, "INV-2025-001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Servicios", found.Category)
		require.NoError(t, tx.Commit(ctx))

		entry, err := repo.GetEntryBySourceID(ctx, "INV-2025-001")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "2025-10-11", entry.Record().DateString())
		assert.True(t, decimal.NewFromInt(1666).Equal(entry.Amount))
		assert.Equal(t, model.StatusActive, entry.Status)
		require.NotNil(t, entry.Description)
		assert.Equal(t, "Mantenimiento preventivo", *entry.Description)
		assert.False(t, entry.CreatedAt.IsZero())
	})

	t.Run("missing entry is nil", func(t *testing.T) {
		repo := newRepo(t)
		entry, err := repo.GetEntryBySourceID(ctx, "INV-2025-404")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("update overwrites in place", func(t *testing.T) {
		repo := newRepo(t)
		tx, err := repo.BeginIngest(ctx)
		require.NoError(t, err)
		_, err = tx.InsertEntry(ctx, testRecord("INV-2025-001"))
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))

		before, err := repo.GetEntryBySourceID(ctx, "INV-2025-001")
		require.NoError(t, err)

		changed := model.Record{
			SourceID: "INV-2025-001",
			Date:     model.CivilDate(2025, time.November, 1),
			Category: "Gastos",
			Amount:   decimal.RequireFromString("12.5"),
			Status:   model.StatusCancelled,
		}
		tx, err = repo.BeginIngest(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.UpdateEntry(ctx, before.ID, changed))
		require.NoError(t, tx.Commit(ctx))

		after, err := repo.GetEntryBySourceID(ctx, "INV-2025-001")
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, "2025-11-01", after.Record().DateString())
		assert.Equal(t, "Gastos", after.Category)
		assert.True(t, decimal.RequireFromString("12.50").Equal(after.Amount))
		assert.Equal(t, model.StatusCancelled, after.Status)
		assert.Nil(t, after.Description)
	})

	t.Run("insert of existing source id overwrites", func(t *testing.T) {
		repo := newRepo(t)
		tx, err := repo.BeginIngest(ctx)
		require.NoError(t, err)
		_, err = tx.InsertEntry(ctx, testRecord("INV-2025-001"))
		require.NoError(t, err)

		rec := testRecord("INV-2025-001")
		rec.Category = "Ventas"
		created, err := tx.InsertEntry(ctx, rec)
		require.NoError(t, err)
		assert.False(t, created)
		require.NoError(t, tx.Commit(ctx))

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Ventas", entries[0].Category)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		repo := newRepo(t)
		tx, err := repo.BeginIngest(ctx)
		require.NoError(t, err)
		_, err = tx.InsertEntry(ctx, testRecord("INV-2025-001"))
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))

		tx, err = repo.BeginIngest(ctx)
		require.NoError(t, err)
		_, err = tx.InsertEntry(ctx, testRecord("INV-2025-002"))
		require.NoError(t, err)
		existing, err := tx.FindBySourceID(ctx, "INV-2025-001")
		require.NoError(t, err)
		changed := testRecord("INV-2025-001")
		changed.Category = "Gastos"
		require.NoError(t, tx.UpdateEntry(ctx, existing.ID, changed))
		require.NoError(t, tx.Rollback(ctx))

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Servicios", entries[0].Category)
	})

	t.Run("list orders by date descending", func(t *testing.T) {
		repo := newRepo(t)
		tx, err := repo.BeginIngest(ctx)
		require.NoError(t, err)
		for i, day := range []int{5, 20, 12} {
			rec := testRecord([]string{"INV-2025-001", "INV-2025-002", "INV-2025-003"}[i])
			rec.Date = model.CivilDate(2025, time.March, day)
			_, err := tx.InsertEntry(ctx, rec)
			require.NoError(t, err)
		}
		require.NoError(t, tx.Commit(ctx))

		entries, err := repo.ListEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "INV-2025-002", entries[0].SourceID)
		assert.Equal(t, "INV-2025-003", entries[1].SourceID)
		assert.Equal(t, "INV-2025-001", entries[2].SourceID)
	})
}
