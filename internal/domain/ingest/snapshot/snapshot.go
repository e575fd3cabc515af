// Package snapshot writes diagnostic copies of an ingestion run: the raw
// extracted rows and the normalized records, as JSON, CSV and XLSX.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
	"github.com/FACorreiaa/ledger-ingest/pkg/money"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// AllFormats lists every supported encoding.
var AllFormats = []Format{FormatJSON, FormatCSV, FormatXLSX}

// ParseFormats maps names to formats, ignoring unknown ones.
func ParseFormats(names []string) []Format {
	var formats []Format
	for _, name := range names {
		for _, f := range AllFormats {
			if string(f) == name {
				formats = append(formats, f)
			}
		}
	}
	return formats
}

// Snapshot is the material captured for one ingestion run.
type Snapshot struct {
	RunID   string           `json:"run_id"`
	Source  string           `json:"source"`
	TakenAt time.Time        `json:"taken_at"`
	Raw     []model.RawRow   `json:"raw"`
	Records []model.Record   `json:"records"`
	Audit   normalizer.Audit `json:"audit"`
	Total   string           `json:"total"`
}

// Writer persists snapshots to a storage sink.
type Writer struct {
	store    storage.Storage
	formats  []Format
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

// NewWriter creates a Writer that emits every format to store.
func NewWriter(store storage.Storage, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:    store,
		formats:  AllFormats,
		currency: money.USD,
		logger:   logger,
		now:      time.Now,
	}
}

// WithFormats restricts the encodings written.
func (w *Writer) WithFormats(formats ...Format) *Writer {
	w.formats = formats
	return w
}

// WithCurrency sets the currency used for display amounts and totals.
func (w *Writer) WithCurrency(code string) *Writer {
	w.currency = code
	return w
}

// New assembles a snapshot with a fresh run id.
func (w *Writer) New(source string, raw []model.RawRow, records []model.Record, audit normalizer.Audit) Snapshot {
	amounts := make([]decimal.Decimal, 0, len(records))
	for _, r := range records {
		amounts = append(amounts, r.Amount)
	}
	takenAt := w.now().UTC()
	return Snapshot{
		RunID:   takenAt.Format("20060102T150405") + "-" + uuid.NewString()[:8],
		Source:  source,
		TakenAt: takenAt,
		Raw:     raw,
		Records: records,
		Audit:   audit,
		Total:   money.Sum(w.currency, amounts...).Display(),
	}
}

// Write stores snap in every configured format. All formats are attempted;
// failures are joined.
func (w *Writer) Write(ctx context.Context, snap Snapshot) ([]*storage.FileInfo, error) {
	var (
		files []*storage.FileInfo
		errs  []error
	)
	put := func(name, contentType string, data []byte) {
		info, err := w.store.Put(ctx, name, contentType, bytes.NewReader(data))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to store %s: %w", name, err))
			return
		}
		files = append(files, info)
	}

	for _, format := range w.formats {
		switch format {
		case FormatJSON:
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to encode json snapshot: %w", err))
				continue
			}
			put(snap.RunID+".json", "application/json", data)

		case FormatCSV:
			raw, err := gocsv.MarshalBytes(rawCSVRows(snap.Raw))
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to encode raw csv: %w", err))
			} else {
				put(snap.RunID+"_raw.csv", "text/csv", raw)
			}
			recs, err := gocsv.MarshalBytes(recordCSVRows(snap.Records, w.currency))
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to encode records csv: %w", err))
			} else {
				put(snap.RunID+"_records.csv", "text/csv", recs)
			}

		case FormatXLSX:
			data, err := workbook(snap, w.currency)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			put(snap.RunID+".xlsx", "", data)

		default:
			errs = append(errs, fmt.Errorf("unknown snapshot format %q", format))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return files, err
	}
	w.logger.Debug("snapshot written", "run_id", snap.RunID, "files", len(files), "records", len(snap.Records))
	return files, nil
}
