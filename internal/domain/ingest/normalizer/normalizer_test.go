package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

var fixedNow = time.Date(2025, time.October, 16, 15, 4, 5, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(WithClock(func() time.Time { return fixedNow }))
}

// ============================================================================
// Dates
// ============================================================================

func TestDate(t *testing.T) {
	n := newTestNormalizer()
	today := model.CivilDate(2025, time.October, 16)

	tests := []struct {
		name      string
		input     string
		want      time.Time
		defaulted bool
	}{
		{"day month year", "11-10-2025", model.CivilDate(2025, time.October, 11), false},
		{"single digit parts", "1-2-2024", model.CivilDate(2024, time.February, 1), false},
		{"slashes", "05/06/2023", model.CivilDate(2023, time.June, 5), false},
		{"spaced dashes", "11 - 10 - 2025", model.CivilDate(2025, time.October, 11), false},
		{"embedded in noise", "Fecha: 03-04-2022", model.CivilDate(2022, time.April, 3), false},
		{"canonical passes through", "2024-12-31", model.CivilDate(2024, time.December, 31), false},
		{"leap day", "29-02-2024", model.CivilDate(2024, time.February, 29), false},
		{"february 31st", "31-02-2025", today, true},
		{"not a leap year", "29-02-2023", today, true},
		{"april 31st", "31-04-2025", today, true},
		{"month out of range", "10-13-2025", today, true},
		{"year out of range", "10-10-1800", today, true},
		{"garbage", "yesterday", today, true},
		{"empty", "", today, true},
		{"whitespace", "   ", today, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Date(tt.input)
			assert.True(t, tt.want.Equal(got.Value), "got %s want %s", got.Value, tt.want)
			assert.Equal(t, tt.defaulted, got.Defaulted)
			if tt.defaulted {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestDate_RoundTrip(t *testing.T) {
	n := newTestNormalizer()
	faker := gofakeit.New(42)
	start := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 500; i++ {
		d := faker.DateRange(start, end)
		for _, layout := range []string{"02-01-2006", "2-1-2006", "02/01/2006"} {
			input := d.Format(layout)

			got := n.Date(input)

			require.False(t, got.Defaulted, "input %q: %s", input, got.Reason)
			assert.Equal(t, d.Year(), got.Value.Year(), input)
			assert.Equal(t, d.Month(), got.Value.Month(), input)
			assert.Equal(t, d.Day(), got.Value.Day(), input)

			again := n.Date(got.Value.Format("02-01-2006"))
			assert.True(t, got.Value.Equal(again.Value), input)
		}
	}
}

func TestNormalizeDate_FallsBackToToday(t *testing.T) {
	now := time.Now().UTC()
	got := NormalizeDate("31-02-2025")

	assert.Equal(t, now.Year(), got.Year())
	assert.Equal(t, now.Month(), got.Month())
	assert.Equal(t, now.Day(), got.Day())
}

func TestDate_FallbackUsesUTCDay(t *testing.T) {
	lima := time.FixedZone("UTC-5", -5*60*60)
	n := New(WithClock(func() time.Time { return time.Date(2025, 10, 16, 23, 30, 0, 0, lima) }))

	got := n.Date("sin fecha")
	assert.True(t, got.Defaulted)
	assert.Equal(t, time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC), got.Value)
}

// ============================================================================
// Amounts
// ============================================================================

func TestAmount(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name      string
		input     any
		want      string
		defaulted bool
	}{
		{"dot as thousands separator", "$1.666", "1666", false},
		{"dot as decimal point", "$12.50", "12.5", false},
		{"single decimal digit", "$3.5", "3.5", false},
		{"several dot separators", "$1.234.567", "1234567", false},
		{"commas dropped", "$1,234.56", "1234.56", false},
		{"euro and spaces", "€ 1 200", "1200", false},
		{"negative", "-45.10", "-45.1", false},
		{"plain integer string", "42", "42", false},
		{"int", 42, "42", false},
		{"int64", int64(7), "7", false},
		{"float", 12.25, "12.25", false},
		{"decimal", decimal.RequireFromString("9.99"), "9.99", false},
		{"json number", json.Number("15.75"), "15.75", false},
		{"empty", "", "0", true},
		{"only symbol", "$", "0", true},
		{"letters", "abc", "0", true},
		{"nil", nil, "0", true},
		{"NaN", math.NaN(), "0", true},
		{"infinity", math.Inf(-1), "0", true},
		{"unsupported type", []int{1}, "0", true},
		{"largest storable", "9999999999.99", "9999999999.99", false},
		{"trailing currency code", "12.50 USD", "0", true},
		{"beyond storable range", "$99.999.999.999", "0", true},
		{"negative beyond range", "-10000000000", "0", true},
		{"exponent overflow", "1e400", "0", true},
		{"rounds up to the bound", decimal.RequireFromString("9999999999.995"), "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Amount(tt.input)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got.Value), "got %s want %s", got.Value, want)
			assert.Equal(t, tt.defaulted, got.Defaulted)
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	assert.True(t, decimal.NewFromInt(1666).Equal(NormalizeAmount("$1.666")))
	assert.True(t, decimal.RequireFromString("12.5").Equal(NormalizeAmount("$12.50")))
	assert.True(t, decimal.Zero.Equal(NormalizeAmount("")))
	assert.True(t, decimal.NewFromInt(42).Equal(NormalizeAmount(42)))
}

// ============================================================================
// Categories
// ============================================================================

func TestCategory(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		input     string
		want      string
		defaulted bool
	}{
		{"servicios", "Servicios", false},
		{"INVENTARIO", "Inventario", false},
		{"  gastos   varios ", "Gastos Varios", false},
		{"ñandú", "Ñandú", false},
		{"", model.UncategorizedCategory, true},
		{"   ", model.UncategorizedCategory, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			got := n.Category(tt.input)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.defaulted, got.Defaulted)
		})
	}
}

// ============================================================================
// Statuses
// ============================================================================

func TestStatus(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		input     string
		want      model.Status
		defaulted bool
	}{
		{"activo", model.StatusActive, false},
		{"ACTIVO-URGENTE", model.StatusActive, false},
		{"Completado", model.StatusCompleted, false},
		{"cancelado por cliente", model.StatusCancelled, false},
		{"pendiente", model.StatusPending, false},
		{"completado / activo", model.StatusActive, false},
		{"cancelado, pendiente", model.StatusPending, false},
		{"desconocido", model.StatusPending, true},
		{"", model.StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			got := n.Status(tt.input)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.defaulted, got.Defaulted)
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, model.StatusActive, NormalizeStatus("ACTIVO-URGENTE"))
	assert.Equal(t, model.StatusPending, NormalizeStatus(""))
}

// ============================================================================
// Records
// ============================================================================

func TestRecords(t *testing.T) {
	n := newTestNormalizer()

	rows := []model.RawRow{
		{SourceID: "INV-2025-001", Date: "11-10-2025", Category: "servicios", Amount: "$1.666", Status: "activo", Description: " Mantenimiento "},
		{Date: "bad", Category: "", Amount: "", Status: "raro"},
		{SourceID: "INV-2025-003", Date: "01-01-2025", Category: "Ventas", Amount: "$10", Status: "completado"},
	}

	records, audit := n.Records(rows)

	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "INV-2025-001", first.SourceID)
	assert.Equal(t, "2025-10-11", first.DateString())
	assert.Equal(t, "Servicios", first.Category)
	assert.True(t, decimal.NewFromInt(1666).Equal(first.Amount))
	assert.Equal(t, model.StatusActive, first.Status)
	require.NotNil(t, first.Description)
	assert.Equal(t, "Mantenimiento", *first.Description)

	second := records[1]
	assert.Equal(t, "PDF-2", second.SourceID)
	assert.Equal(t, "2025-10-16", second.DateString())
	assert.Equal(t, model.UncategorizedCategory, second.Category)
	assert.True(t, decimal.Zero.Equal(second.Amount))
	assert.Equal(t, model.StatusPending, second.Status)
	assert.Nil(t, second.Description)

	assert.Equal(t, "INV-2025-003", records[2].SourceID)
	assert.Nil(t, records[2].Description)

	assert.Equal(t, 5, audit.Len())
	assert.Equal(t, map[string]int{
		"source_id": 1,
		"date":      1,
		"amount":    1,
		"category":  1,
		"status":    1,
	}, audit.Fields())
	for _, c := range audit.Corrections {
		assert.Equal(t, "PDF-2", c.SourceID)
		assert.Equal(t, 1, c.Position)
	}
}

func TestRecords_Empty(t *testing.T) {
	records, audit := newTestNormalizer().Records(nil)

	assert.Empty(t, records)
	assert.Zero(t, audit.Len())
}

func BenchmarkRecords(b *testing.B) {
	n := New()
	rows := make([]model.RawRow, 1000)
	for i := range rows {
		rows[i] = model.RawRow{
			SourceID:    fmt.Sprintf("INV-2025-%03d", i%1000),
			Date:        "11-10-2025",
			Category:    "servicios",
			Amount:      "$1.666,50",
			Status:      "completado",
			Description: "Mantenimiento preventivo",
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Records(rows)
	}
}
