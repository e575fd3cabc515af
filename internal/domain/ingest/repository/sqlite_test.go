package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-ingest/pkg/db"
)

func newSQLiteRepo(t *testing.T) LedgerRepository {
	t.Helper()

	sqlDB, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.MigrateSQLite(context.Background(), sqlDB, nil))
	return NewSQLiteLedgerRepository(sqlDB)
}

func TestSQLiteLedgerRepository(t *testing.T) {
	runLedgerContract(t, newSQLiteRepo)
}
