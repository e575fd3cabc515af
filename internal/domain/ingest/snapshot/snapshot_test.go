package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

func fixture() ([]model.RawRow, []model.Record, normalizer.Audit) {
	desc := "Mantenimiento preventivo"
	raw := []model.RawRow{
		{SourceID: "INV-2025-001", Date: "11-10-2025", Category: "Servicios", Amount: "$1.666", Status: "activo", Description: desc, Origin: model.Origin{Page: 1, Table: 1, Row: 1}},
		{SourceID: "INV-2025-002", Date: "12-10-2025", Category: "Ventas", Amount: "$12.50", Status: "???", Origin: model.Origin{Page: 1, Table: 1, Row: 2}},
	}
	records := []model.Record{
		{SourceID: "INV-2025-001", Date: model.CivilDate(2025, time.October, 11), Category: "Servicios", Amount: decimal.NewFromInt(1666), Status: model.StatusActive, Description: &desc},
		{SourceID: "INV-2025-002", Date: model.CivilDate(2025, time.October, 12), Category: "Ventas", Amount: decimal.RequireFromString("12.50"), Status: model.StatusPending},
	}
	audit := normalizer.Audit{Corrections: []normalizer.Correction{
		{SourceID: "INV-2025-002", Position: 1, Field: "status", Raw: "???", Reason: "unknown status"},
	}}
	return raw, records, audit
}

func newWriter(t *testing.T) (*Writer, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	w := NewWriter(store, nil)
	w.now = func() time.Time { return time.Date(2025, 10, 16, 9, 30, 0, 0, time.UTC) }
	return w, store
}

func read(t *testing.T, store storage.Storage, name string) []byte {
	t.Helper()
	rc, _, err := store.Get(context.Background(), name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

// ============================================================================
// Writer Tests
// ============================================================================

func TestWriter_New(t *testing.T) {
	w, _ := newWriter(t)
	raw, records, audit := fixture()

	snap := w.New("table", raw, records, audit)
	assert.True(t, strings.HasPrefix(snap.RunID, "20251016T093000-"))
	assert.Equal(t, "table", snap.Source)
	assert.Equal(t, "$1,678.50", snap.Total)
	assert.Len(t, snap.Records, 2)
}

func TestWriter_WriteAllFormats(t *testing.T) {
	ctx := context.Background()
	w, store := newWriter(t)
	raw, records, audit := fixture()
	snap := w.New("table", raw, records, audit)

	files, err := w.Write(ctx, snap)
	require.NoError(t, err)
	require.Len(t, files, 4)

	t.Run("json", func(t *testing.T) {
		var decoded struct {
			RunID   string `json:"run_id"`
			Records []struct {
				SourceID string `json:"source_id"`
				Amount   string `json:"amount"`
			} `json:"records"`
			Audit struct {
				Corrections []normalizer.Correction `json:"corrections"`
			} `json:"audit"`
		}
		require.NoError(t, json.Unmarshal(read(t, store, snap.RunID+".json"), &decoded))
		assert.Equal(t, snap.RunID, decoded.RunID)
		require.Len(t, decoded.Records, 2)
		assert.Equal(t, "1666", decoded.Records[0].Amount)
		assert.Len(t, decoded.Audit.Corrections, 1)
	})

	t.Run("records csv", func(t *testing.T) {
		var rows []recordCSVRow
		require.NoError(t, gocsv.UnmarshalBytes(read(t, store, snap.RunID+"_records.csv"), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, recordCSVRow{
			SourceID:      "INV-2025-001",
			Date:          "2025-10-11",
			Category:      "Servicios",
			Amount:        "1666.00",
			AmountDisplay: "$1,666.00",
			Status:        "activo",
			Description:   "Mantenimiento preventivo",
		}, rows[0])
		assert.Empty(t, rows[1].Description)
	})

	t.Run("raw csv", func(t *testing.T) {
		var rows []rawCSVRow
		require.NoError(t, gocsv.UnmarshalBytes(read(t, store, snap.RunID+"_raw.csv"), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "$1.666", rows[0].Amount)
		assert.Equal(t, 2, rows[1].Row)
	})

	t.Run("xlsx", func(t *testing.T) {
		f, err := excelize.OpenReader(bytes.NewReader(read(t, store, snap.RunID+".xlsx")))
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{recordsSheet, rawSheet}, f.GetSheetList())

		rows, err := f.GetRows(recordsSheet)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(rows), 3)
		assert.Equal(t, "Source ID", rows[0][0])
		assert.Equal(t, "INV-2025-001", rows[1][0])
		assert.Equal(t, "$12.50", rows[2][4])
		assert.Equal(t, "Total", rows[len(rows)-1][0])

		rawRows, err := f.GetRows(rawSheet)
		require.NoError(t, err)
		assert.Len(t, rawRows, 3)
	})
}

func TestWriter_WithFormats(t *testing.T) {
	w, store := newWriter(t)
	raw, records, audit := fixture()

	files, err := w.WithFormats(FormatCSV).Write(context.Background(), w.New("text", raw, records, audit))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	listed, err := store.List(context.Background())
	require.NoError(t, err)
	for _, f := range listed {
		assert.Equal(t, "text/csv", f.ContentType)
	}
}

type failingStore struct {
	storage.Storage
	failSuffix string
}

func (s failingStore) Put(ctx context.Context, name, contentType string, r io.Reader) (*storage.FileInfo, error) {
	if strings.HasSuffix(name, s.failSuffix) {
		return nil, errors.New("disk full")
	}
	return s.Storage.Put(ctx, name, contentType, r)
}

func TestWriter_StoreFailureKeepsOtherFormats(t *testing.T) {
	base, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	w := NewWriter(failingStore{Storage: base, failSuffix: ".xlsx"}, nil)
	raw, records, audit := fixture()

	files, err := w.Write(context.Background(), w.New("table", raw, records, audit))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, files, 3)
}

func TestParseFormats(t *testing.T) {
	assert.Equal(t, []Format{FormatJSON, FormatXLSX}, ParseFormats([]string{"json", "pdf", "xlsx"}))
	assert.Empty(t, ParseFormats(nil))
}
