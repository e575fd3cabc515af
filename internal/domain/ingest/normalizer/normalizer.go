// Package normalizer maps loosely typed extracted fields to canonical values.
// Every function is total: bad input is repaired to a documented default and
// the repair is reported through Outcome so strict callers can audit it.
package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/model"
)

// Outcome is a normalized value plus whether it was defaulted.
type Outcome[T any] struct {
	Value     T
	Defaulted bool
	Reason    string
}

func accepted[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func defaulted[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Defaulted: true, Reason: reason}
}

// Normalizer holds the clock used for the date fallback.
type Normalizer struct {
	now    func() time.Time
	status *ahocorasick.Matcher
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	words := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		words[i] = string(s)
	}
	n := &Normalizer{
		now:    time.Now,
		status: ahocorasick.NewStringMatcher(words),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = New()

// NormalizeDate returns the calendar date in s, or today when s is unusable.
func NormalizeDate(s string) time.Time { return defaultNormalizer.Date(s).Value }

// NormalizeAmount returns the decimal value of v, or zero when v is unusable.
func NormalizeAmount(v any) decimal.Decimal { return defaultNormalizer.Amount(v).Value }

// NormalizeCategory title-cases s, or returns the uncategorized sentinel.
func NormalizeCategory(s string) string { return defaultNormalizer.Category(s).Value }

// NormalizeStatus maps s onto the closed status set, defaulting to pending.
func NormalizeStatus(s string) model.Status { return defaultNormalizer.Status(s).Value }

var (
	dashSpacing = regexp.MustCompile(`\s*-\s*`)
	whitespace  = regexp.MustCompile(`\s+`)

	// Tried in order on the cleaned string.
	dmyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`),
		regexp.MustCompile(`(\d{1,2})[-/](\d{1,2})[-/](\d{4})`),
	}

	// Legacy formats tried on the untouched input.
	legacySlashDMY = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	canonicalYMD   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// Date parses a day-month-year date. Unusable input yields today's date.
func (n *Normalizer) Date(s string) Outcome[time.Time] {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return defaulted(n.today(), "empty date")
	}

	cleaned := dashSpacing.ReplaceAllString(raw, "-")
	cleaned = whitespace.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, "/", "-")

	for _, p := range dmyPatterns {
		if m := p.FindStringSubmatch(cleaned); m != nil {
			if d, ok := civilDate(m[3], m[2], m[1]); ok {
				return accepted(d)
			}
		}
	}

	if m := legacySlashDMY.FindStringSubmatch(raw); m != nil {
		if d, ok := civilDate(m[3], m[2], m[1]); ok {
			return accepted(d)
		}
	}
	if m := canonicalYMD.FindStringSubmatch(raw); m != nil {
		if d, ok := civilDate(m[1], m[2], m[3]); ok {
			return accepted(d)
		}
	}

	return defaulted(n.today(), fmt.Sprintf("unparsable date %q", raw))
}

func (n *Normalizer) today() time.Time {
	now := n.now().UTC()
	return model.CivilDate(now.Year(), now.Month(), now.Day())
}

// civilDate validates the ranges and that the triple names a real day.
func civilDate(yearStr, monthStr, dayStr string) (time.Time, bool) {
	year, err1 := strconv.Atoi(yearStr)
	month, err2 := strconv.Atoi(monthStr)
	day, err3 := strconv.Atoi(dayStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 || year > 2100 {
		return time.Time{}, false
	}

	d := model.CivilDate(year, time.Month(month), day)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// MaxAmount is the exclusive magnitude bound of a stored amount, matching
// the NUMERIC(12,2) column after rounding to cents.
var MaxAmount = decimal.New(1, 10)

// Amount converts v to a decimal. Strings are cleaned first; a '.' is read
// as a thousands separator when it appears more than once or is followed by
// more than two digits, otherwise as the decimal point. Commas are dropped.
// Values whose magnitude reaches MaxAmount default to zero.
func (n *Normalizer) Amount(v any) Outcome[decimal.Decimal] {
	out := n.amount(v)
	if !out.Defaulted && out.Value.Round(2).Abs().GreaterThanOrEqual(MaxAmount) {
		return defaulted(decimal.Zero, fmt.Sprintf("amount %s out of range", abbreviate(out.Value.String())))
	}
	return out
}

// abbreviate shortens pathological numerals for log and audit output.
func abbreviate(s string) string {
	if len(s) <= 24 {
		return s
	}
	return s[:20] + "..."
}

func (n *Normalizer) amount(v any) Outcome[decimal.Decimal] {
	switch x := v.(type) {
	case nil:
		return defaulted(decimal.Zero, "missing amount")
	case decimal.Decimal:
		return accepted(x)
	case int:
		return accepted(decimal.NewFromInt(int64(x)))
	case int32:
		return accepted(decimal.NewFromInt32(x))
	case int64:
		return accepted(decimal.NewFromInt(x))
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case json.Number:
		return parseAmount(x.String())
	case string:
		return parseAmount(x)
	case fmt.Stringer:
		return parseAmount(x.String())
	}
	return defaulted(decimal.Zero, fmt.Sprintf("unsupported amount type %T", v))
}

func fromFloat(f float64) Outcome[decimal.Decimal] {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return defaulted(decimal.Zero, "non-finite amount")
	}
	return accepted(decimal.NewFromFloat(f))
}

func parseAmount(s string) Outcome[decimal.Decimal] {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return defaulted(decimal.Zero, "empty amount")
	}

	if strings.Contains(cleaned, ".") {
		parts := strings.Split(cleaned, ".")
		if len(parts) > 2 || len(parts[len(parts)-1]) > 2 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return defaulted(decimal.Zero, fmt.Sprintf("unparsable amount %q", s))
	}
	return accepted(d)
}

// Category title-cases every whitespace separated word.
func (n *Normalizer) Category(s string) Outcome[string] {
	words := strings.Fields(s)
	if len(words) == 0 {
		return defaulted(model.UncategorizedCategory, "empty category")
	}
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return accepted(strings.Join(words, " "))
}

func titleWord(w string) string {
	first, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(first)) + strings.ToLower(w[size:])
}

// Status picks the first status, in priority order, contained in s.
func (n *Normalizer) Status(s string) Outcome[model.Status] {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return defaulted(model.StatusPending, "empty status")
	}

	hits := n.status.MatchThreadSafe([]byte(lower))
	if len(hits) == 0 {
		return defaulted(model.StatusPending, fmt.Sprintf("unknown status %q", s))
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h < best {
			best = h
		}
	}
	return accepted(model.Statuses[best])
}
