package snapshot

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ledger-ingest/pkg/money"
)

const (
	recordsSheet = "Records"
	rawSheet     = "Raw"
)

var recordHeaders = []any{"Source ID", "Date", "Category", "Amount", "Amount (display)", "Status", "Description"}

var rawHeaders = []any{"Page", "Table", "Row", "Line", "Source ID", "Date", "Category", "Amount", "Status", "Description"}

// workbook renders snap as an XLSX file with a Records and a Raw sheet.
func workbook(snap Snapshot, currency string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return nil, fmt.Errorf("failed to name records sheet: %w", err)
	}
	if _, err := f.NewSheet(rawSheet); err != nil {
		return nil, fmt.Errorf("failed to create raw sheet: %w", err)
	}

	if err := setRow(f, recordsSheet, 1, recordHeaders); err != nil {
		return nil, err
	}
	row := 2
	for _, r := range snap.Records {
		values := []any{
			r.SourceID,
			r.DateString(),
			r.Category,
			r.Amount.InexactFloat64(),
			money.NewFromDecimal(r.Amount, currency).Display(),
			string(r.Status),
			deref(r.Description),
		}
		if err := setRow(f, recordsSheet, row, values); err != nil {
			return nil, err
		}
		row++
	}
	if len(snap.Records) > 0 {
		if err := setRow(f, recordsSheet, row+1, []any{"Total", "", "", "", snap.Total}); err != nil {
			return nil, err
		}
	}

	if err := setRow(f, rawSheet, 1, rawHeaders); err != nil {
		return nil, err
	}
	for i, r := range snap.Raw {
		values := []any{
			r.Origin.Page, r.Origin.Table, r.Origin.Row, r.Origin.Line,
			r.SourceID, r.Date, r.Category, r.Amount, r.Status, r.Description,
		}
		if err := setRow(f, rawSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(recordsSheet, "A", "A", 16) // source id
	_ = f.SetColWidth(recordsSheet, "E", "E", 18) // display amount
	_ = f.SetColWidth(recordsSheet, "G", "G", 40) // description

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
