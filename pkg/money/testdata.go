package money

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// TestDataGenerator generates realistic ledger test data using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// ============================================================================
// Ledger Row Generation
// ============================================================================

// LedgerSample is one generated ledger row, both as rendered text cells and
// as the values a normalizer is expected to produce from them.
type LedgerSample struct {
	SourceID    string
	Date        time.Time
	DateText    string
	Category    string
	Amount      *Money
	AmountText  string
	Status      string
	Description string
}

// Cells renders the sample as the six cells of a ledger table row.
func (s LedgerSample) Cells() []string {
	return []string{s.SourceID, s.DateText, s.Category, s.AmountText, s.Status, s.Description}
}

// Line renders the sample as a pipe-separated text line.
func (s LedgerSample) Line() string {
	return strings.Join(s.Cells(), " | ")
}

// LedgerSample generates the n-th ledger row of year.
func (g *TestDataGenerator) LedgerSample(currency string, year, n int) LedgerSample {
	date := g.faker.DateRange(
		time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, 12, 28, 0, 0, 0, 0, time.UTC),
	)
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	amount, text := g.LedgerAmount(currency)

	return LedgerSample{
		SourceID:    fmt.Sprintf("INV-%04d-%03d", year, n),
		Date:        date,
		DateText:    date.Format("02-01-2006"),
		Category:    ledgerCategories[g.faker.Number(0, len(ledgerCategories)-1)],
		Amount:      amount,
		AmountText:  text,
		Status:      ledgerStatuses[g.faker.Number(0, len(ledgerStatuses)-1)],
		Description: ledgerDescriptions[g.faker.Number(0, len(ledgerDescriptions)-1)],
	}
}

// LedgerSamples generates count sequential ledger rows of year.
func (g *TestDataGenerator) LedgerSamples(currency string, year, count int) []LedgerSample {
	samples := make([]LedgerSample, count)
	for i := 0; i < count; i++ {
		samples[i] = g.LedgerSample(currency, year, i+1)
	}
	return samples
}

// ============================================================================
// Money Generation
// ============================================================================

// RandomAmount generates a random Money value within a minor-unit range.
func (g *TestDataGenerator) RandomAmount(currency string, minMinor, maxMinor int) *Money {
	if minMinor > maxMinor {
		minMinor, maxMinor = maxMinor, minMinor
	}
	return New(int64(g.faker.Number(minMinor, maxMinor)), currency)
}

// LedgerAmount generates an amount and its rendering as printed on ledger
// reports. Whole amounts use dot thousands separators ("$1.234"), others
// use comma thousands with two decimals ("$1,234.50").
func (g *TestDataGenerator) LedgerAmount(currency string) (*Money, string) {
	if g.faker.Bool() {
		whole := g.faker.Number(1, 250000)
		return New(int64(whole)*100, currency), "$" + groupThousands(int64(whole), ".")
	}
	minor := int64(g.faker.Number(1, 2500000))
	text := fmt.Sprintf("$%s.%02d", groupThousands(minor/100, ","), minor%100)
	return New(minor, currency), text
}

func groupThousands(n int64, sep string) string {
	digits := fmt.Sprintf("%d", n)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ============================================================================
// Description and Category Generation
// ============================================================================

var ledgerCategories = []string{"Servicios", "Inventario", "Gastos", "Ventas"}

var ledgerStatuses = []string{"activo", "pendiente", "completado", "cancelado"}

var ledgerDescriptions = []string{
	"Mantenimiento preventivo",
	"Compra de insumos",
	"Pago de proveedores",
	"Licencias de software",
	"Venta mayorista",
	"Servicio de transporte",
	"Reposición de stock",
	"Honorarios de consultoría",
	"Arriendo de oficina",
	"Capacitación del personal",
}
