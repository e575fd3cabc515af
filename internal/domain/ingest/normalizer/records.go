package normalizer

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

// Correction records a field that was repaired to a default.
type Correction struct {
	SourceID string `json:"source_id"`
	Position int    `json:"position"`
	Field    string `json:"field"`
	Raw      string `json:"raw"`
	Reason   string `json:"reason"`
}

// Audit lists every correction made while normalizing a batch.
type Audit struct {
	Corrections []Correction `json:"corrections,omitempty"`
}

// Len returns the number of corrections.
func (a Audit) Len() int {
	return len(a.Corrections)
}

// Fields counts corrections per field name.
func (a Audit) Fields() map[string]int {
	counts := make(map[string]int)
	for _, c := range a.Corrections {
		counts[c.Field]++
	}
	return counts
}

func (a *Audit) add(sourceID string, pos int, field, raw, reason string) {
	a.Corrections = append(a.Corrections, Correction{
		SourceID: sourceID,
		Position: pos,
		Field:    field,
		Raw:      raw,
		Reason:   reason,
	})
}

// PlaceholderSourceID is the identifier given to the row at index i when
// it carries none.
func PlaceholderSourceID(i int) string {
	return fmt.Sprintf("PDF-%d", i+1)
}

// Record normalizes a single row. i is the row position within its batch.
func (n *Normalizer) Record(i int, row model.RawRow, audit *Audit) model.Record {
	sourceID := strings.TrimSpace(row.SourceID)
	if sourceID == "" {
		sourceID = PlaceholderSourceID(i)
		audit.add(sourceID, i, "source_id", row.SourceID, "missing source id")
	}

	date := n.Date(row.Date)
	if date.Defaulted {
		audit.add(sourceID, i, "date", row.Date, date.Reason)
	}

	amount := n.Amount(row.Amount)
	if amount.Defaulted {
		audit.add(sourceID, i, "amount", row.Amount, amount.Reason)
	}

	category := n.Category(row.Category)
	if category.Defaulted {
		audit.add(sourceID, i, "category", row.Category, category.Reason)
	}

	status := n.Status(row.Status)
	if status.Defaulted {
		audit.add(sourceID, i, "status", row.Status, status.Reason)
	}

	rec := model.Record{
		SourceID: sourceID,
		Date:     date.Value,
		Category: category.Value,
		Amount:   amount.Value,
		Status:   status.Value,
	}
	if desc := strings.TrimSpace(row.Description); desc != "" {
		rec.Description = &desc
	}
	return rec
}

// Records normalizes rows in order.
func (n *Normalizer) Records(rows []model.RawRow) ([]model.Record, Audit) {
	var audit Audit
	records := make([]model.Record, 0, len(rows))
	for i, row := range rows {
		records = append(records, n.Record(i, row, &audit))
	}
	return records, audit
}
