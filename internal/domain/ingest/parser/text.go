package parser

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

var (
	textSourceID = regexp.MustCompile(`(?i)INV-\d{4}-\d{3}`)
	textDate     = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)
	textCategory = regexp.MustCompile(`(?i)(Servicios|Inventario|Gastos|Ventas)`)
	textAmount   = regexp.MustCompile(`\$([\d.]+)`)
	textStatus   = regexp.MustCompile(`(?i)\b(activo|pendiente|completado|cancelado)\b`)
)

// TextExtractor recovers rows from plain text, one candidate per line.
type TextExtractor struct {
	logger *slog.Logger
}

// NewTextExtractor creates a TextExtractor.
func NewTextExtractor(logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{logger: logger}
}

// Extract reads the document text and parses it line by line.
func (e *TextExtractor) Extract(ctx context.Context, doc Document) (*ParseResult, error) {
	text, err := doc.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return e.ExtractText(text), nil
}

// ExtractText parses lines carrying a source id token. Lines without a date
// or a category are dropped.
func (e *TextExtractor) ExtractText(text string) *ParseResult {
	result := &ParseResult{Source: SourceText}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sourceID := textSourceID.FindString(line)
		if sourceID == "" {
			continue
		}
		result.TotalRows++

		raw, ok := parseLine(line, sourceID)
		if !ok {
			result.skip()
			e.logger.Debug("text line dropped", slog.Int("line", lineNo), slog.String("source_id", sourceID))
			continue
		}
		raw.Origin = model.Origin{Line: lineNo}
		result.accept(raw)
	}

	return result
}

func parseLine(line, sourceID string) (model.RawRow, bool) {
	raw := model.RawRow{SourceID: sourceID}

	if m := textDate.FindStringSubmatch(line); m != nil {
		raw.Date = m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := textCategory.FindStringSubmatch(line); m != nil {
		raw.Category = m[1]
	}
	if m := textAmount.FindStringSubmatch(line); m != nil {
		raw.Amount = m[1]
	}
	if loc := textStatus.FindStringSubmatchIndex(line); loc != nil {
		raw.Status = strings.ToLower(line[loc[2]:loc[3]])
		raw.Description = cleanDescription(line[loc[1]:])
	} else {
		raw.Description = cleanDescription(line)
	}

	return raw, raw.Date != "" && raw.Category != ""
}

// cleanDescription removes pipes and collapses whitespace.
func cleanDescription(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "|", "")), " ")
}
