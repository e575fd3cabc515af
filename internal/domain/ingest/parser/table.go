package parser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/sniffer"
)

var (
	dateNoise     = regexp.MustCompile(`[^\d\-/]`)
	dmyShape      = regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`)
	dateSeparator = regexp.MustCompile(`[-/\s]+`)
)

// TableExtractor turns detected tables into raw rows using content based
// column sniffing.
type TableExtractor struct {
	logger *slog.Logger
}

// NewTableExtractor creates a TableExtractor.
func NewTableExtractor(logger *slog.Logger) *TableExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableExtractor{logger: logger}
}

// Extract reads every table of doc. It returns ErrNoTableData when the
// document has no tables, the table call fails, or no row survives.
func (e *TableExtractor) Extract(ctx context.Context, doc Document) (*ParseResult, error) {
	tables, err := doc.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTableData, err)
	}
	if len(tables) == 0 {
		return nil, ErrNoTableData
	}

	result := e.ExtractTables(tables)
	if result.Empty() {
		return result, ErrNoTableData
	}
	return result, nil
}

// ExtractTables applies column sniffing to each table and collects rows in
// encounter order.
func (e *TableExtractor) ExtractTables(tables []Table) *ParseResult {
	result := &ParseResult{Source: SourceTable}

	for ti, table := range tables {
		if len(table.Rows) == 0 {
			continue
		}

		sample := table.Rows[:min(sniffer.MaxSampleRows, len(table.Rows))]
		roles := sniffer.ClassifyColumns(sample)

		e.logger.Debug("table columns classified",
			slog.Int("page", table.Page),
			slog.Int("table", ti),
			slog.Int("source_id_col", roles.SourceID),
			slog.Int("date_col", roles.Date),
			slog.Int("category_col", roles.Category),
			slog.Int("amount_col", roles.Amount),
			slog.Int("status_col", roles.Status),
			slog.Int("description_col", roles.Description),
			slog.String("fingerprint", sniffer.Fingerprint(table.Rows[0])),
		)

		before := result.ParsedRows
		skippedBefore := result.SkippedRows

		// row 0 is the header
		for ri := 1; ri < len(table.Rows); ri++ {
			row := table.Rows[ri]
			if len(row) < sniffer.MinRowCells {
				continue
			}
			result.TotalRows++

			raw, ok := extractRow(row, roles)
			if !ok {
				result.skip()
				continue
			}
			raw.Origin = model.Origin{Page: table.Page, Table: ti, Row: ri}
			result.accept(raw)
		}

		e.logger.Debug("table extracted",
			slog.Int("page", table.Page),
			slog.Int("table", ti),
			slog.Int("added", result.ParsedRows-before),
			slog.Int("skipped", result.SkippedRows-skippedBefore),
		)
	}

	return result
}

func extractRow(row []string, roles sniffer.ColumnRoles) (model.RawRow, bool) {
	raw := model.RawRow{
		SourceID:    cell(row, roles.SourceID),
		Date:        cell(row, roles.Date),
		Category:    cell(row, roles.Category),
		Amount:      cell(row, roles.Amount),
		Status:      strings.ToLower(cell(row, roles.Status)),
		Description: cell(row, roles.Description),
	}
	if raw.SourceID == "" || raw.Date == "" || raw.Category == "" {
		return raw, false
	}

	raw.Date = CleanDate(raw.Date)
	raw.Amount = CleanAmount(raw.Amount)
	if raw.Date == "" {
		return raw, false
	}
	return raw, true
}

// cell returns the trimmed text at col, or "" when col is unassigned or out of range.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// CleanDate strips noise from a table date cell and rewrites it as
// day-month-year joined by dashes when possible.
func CleanDate(s string) string {
	date := strings.Join(strings.Fields(s), "")
	date = dateNoise.ReplaceAllString(date, "")
	date = strings.ReplaceAll(date, "/", "-")

	if date != "" && !dmyShape.MatchString(date) {
		var parts []string
		for _, p := range dateSeparator.Split(date, -1) {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 3 {
			date = strings.Join(parts, "-")
		}
	}
	return date
}

// CleanAmount strips currency glyphs, thousands commas and whitespace from a
// table amount cell.
func CleanAmount(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
}
