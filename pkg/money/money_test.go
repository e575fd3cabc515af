package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Basic Money Operations Tests
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		minor    int64
		currency string
		want     int64
	}{
		{"positive cents", 1234, USD, 1234},
		{"zero", 0, USD, 0},
		{"negative cents", -5000, USD, -5000},
		{"large amount", 999999999, USD, 999999999},
		{"euro", 1000, EUR, 1000},
		{"peso (no decimals)", 10000, CLP, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.minor, tt.currency)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{"whole dollars", "1666", USD, 166600},
		{"cents", "12.50", USD, 1250},
		{"rounds half up", "0.125", USD, 13},
		{"negative", "-3.5", USD, -350},
		{"no minor unit", "1234", CLP, 1234},
		{"no minor unit rounds", "1234.6", CLP, 1235},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFromDecimal(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.want, m.Amount())
		})
	}
}

func TestZero(t *testing.T) {
	m := Zero(USD)
	assert.True(t, m.IsZero())
	assert.Equal(t, USD, m.Currency())
}

// ============================================================================
// Arithmetic Tests
// ============================================================================

func TestAdd(t *testing.T) {
	t.Run("same currency", func(t *testing.T) {
		sum, err := New(1000, USD).Add(New(250, USD))
		require.NoError(t, err)
		assert.Equal(t, int64(1250), sum.Amount())
	})

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := New(1000, USD).Add(New(250, EUR))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("nil operands", func(t *testing.T) {
		var m *Money
		sum, err := m.Add(New(100, USD))
		require.NoError(t, err)
		assert.Equal(t, int64(100), sum.Amount())

		sum, err = New(100, USD).Add(nil)
		require.NoError(t, err)
		assert.Equal(t, int64(100), sum.Amount())
	})
}

func TestSum(t *testing.T) {
	total := Sum(USD,
		decimal.RequireFromString("1666"),
		decimal.RequireFromString("12.50"),
		decimal.RequireFromString("-2.25"),
	)
	assert.Equal(t, int64(167625), total.Amount())
	assert.Equal(t, "1676.25", total.String())

	assert.True(t, Sum(USD).IsZero())
}

// ============================================================================
// Display and Formatting Tests
// ============================================================================

func TestDisplay(t *testing.T) {
	tests := []struct {
		name     string
		minor    int64
		currency string
		contains string
	}{
		{"USD", 12345, USD, "$"},
		{"EUR", 12345, EUR, "€"},
		{"negative", -5000, USD, "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.minor, tt.currency)
			assert.Contains(t, m.Display(), tt.contains)
		})
	}

	assert.Equal(t, "$1,234.56", New(123456, USD).Display())
}

func TestString(t *testing.T) {
	assert.Equal(t, "123.45", New(12345, USD).String())
	assert.Equal(t, "1666.00", NewFromDecimal(decimal.NewFromInt(1666), USD).String())
	assert.Equal(t, "1000", New(1000, CLP).String())
}

func TestToDecimal(t *testing.T) {
	m := New(12345, USD)
	d := m.ToDecimal()

	expected, _ := decimal.NewFromString("123.45")
	assert.True(t, d.Equal(expected))
}

// ============================================================================
// Edge Cases and Nil Safety Tests
// ============================================================================

func TestNilSafety(t *testing.T) {
	var m *Money

	// All these should not panic
	assert.Equal(t, int64(0), m.Amount())
	assert.Equal(t, "", m.Currency())
	assert.True(t, m.IsZero())
	assert.Equal(t, "$0.00", m.Display())
	assert.Equal(t, "0.00", m.String())
	assert.True(t, m.ToDecimal().IsZero())
}

// ============================================================================
// Test Data Generator Tests
// ============================================================================

func TestTestDataGenerator(t *testing.T) {
	gen := NewTestDataGeneratorWithSeed(42)

	t.Run("generates ledger sample", func(t *testing.T) {
		s := gen.LedgerSample(USD, 2025, 7)
		assert.Equal(t, "INV-2025-007", s.SourceID)
		assert.Equal(t, 2025, s.Date.Year())
		assert.Equal(t, s.Date.Format("02-01-2006"), s.DateText)
		assert.Contains(t, ledgerCategories, s.Category)
		assert.Contains(t, ledgerStatuses, s.Status)
		assert.NotEmpty(t, s.Description)
		assert.Len(t, s.Cells(), 6)
	})

	t.Run("generates sequential samples", func(t *testing.T) {
		samples := gen.LedgerSamples(USD, 2025, 12)
		require.Len(t, samples, 12)
		assert.Equal(t, "INV-2025-001", samples[0].SourceID)
		assert.Equal(t, "INV-2025-012", samples[11].SourceID)
	})

	t.Run("random amount stays in range", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			m := gen.RandomAmount(USD, 500, 100)
			assert.GreaterOrEqual(t, m.Amount(), int64(100))
			assert.LessOrEqual(t, m.Amount(), int64(500))
		}
	})

	t.Run("ledger amount text carries a dollar sign", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			m, text := gen.LedgerAmount(USD)
			assert.True(t, m.Amount() > 0)
			assert.Equal(t, byte('$'), text[0])
		}
	})
}

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		n    int64
		sep  string
		want string
	}{
		{7, ".", "7"},
		{999, ".", "999"},
		{1234, ".", "1.234"},
		{123456, ",", "123,456"},
		{1234567, ".", "1.234.567"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, groupThousands(tt.n, tt.sep))
		})
	}
}

// ============================================================================
// Benchmarks
// ============================================================================

func BenchmarkSum(b *testing.B) {
	amounts := make([]decimal.Decimal, 100)
	for i := range amounts {
		amounts[i] = decimal.NewFromFloat(float64(i) + 0.25)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Sum(USD, amounts...)
	}
}
