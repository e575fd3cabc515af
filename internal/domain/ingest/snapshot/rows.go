package snapshot

import (
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
	"github.com/FACorreiaa/ledger-ingest/pkg/money"
)

type rawCSVRow struct {
	Page        int    `csv:"page"`
	Table       int    `csv:"table"`
	Row         int    `csv:"row"`
	Line        int    `csv:"line"`
	SourceID    string `csv:"source_id"`
	Date        string `csv:"date"`
	Category    string `csv:"category"`
	Amount      string `csv:"amount"`
	Status      string `csv:"status"`
	Description string `csv:"description"`
}

type recordCSVRow struct {
	SourceID      string `csv:"source_id"`
	Date          string `csv:"date"`
	Category      string `csv:"category"`
	Amount        string `csv:"amount"`
	AmountDisplay string `csv:"amount_display"`
	Status        string `csv:"status"`
	Description   string `csv:"description"`
}

func rawCSVRows(rows []model.RawRow) []rawCSVRow {
	out := make([]rawCSVRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, rawCSVRow{
			Page:        r.Origin.Page,
			Table:       r.Origin.Table,
			Row:         r.Origin.Row,
			Line:        r.Origin.Line,
			SourceID:    r.SourceID,
			Date:        r.Date,
			Category:    r.Category,
			Amount:      r.Amount,
			Status:      r.Status,
			Description: r.Description,
		})
	}
	return out
}

func recordCSVRows(records []model.Record, currency string) []recordCSVRow {
	out := make([]recordCSVRow, 0, len(records))
	for _, r := range records {
		out = append(out, recordCSVRow{
			SourceID:      r.SourceID,
			Date:          r.DateString(),
			Category:      r.Category,
			Amount:        r.Amount.StringFixed(2),
			AmountDisplay: money.NewFromDecimal(r.Amount, currency).Display(),
			Status:        string(r.Status),
			Description:   deref(r.Description),
		})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
