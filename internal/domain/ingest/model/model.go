// Package model holds the row types that flow through the ledger ingestion pipeline.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the canonical lifecycle state of a ledger row.
// Values are the tokens used by the source documents.
type Status string

const (
	StatusActive    Status = "activo"
	StatusPending   Status = "pendiente"
	StatusCompleted Status = "completado"
	StatusCancelled Status = "cancelado"
)

// Statuses lists the closed status set in match priority order.
var Statuses = []Status{StatusActive, StatusPending, StatusCompleted, StatusCancelled}

// Categories is the category vocabulary recognised by the extractors.
var Categories = []string{"Servicios", "Inventario", "Gastos", "Ventas"}

// UncategorizedCategory is stored when a row carries no category.
const UncategorizedCategory = "Uncategorized"

// Origin identifies where an extracted row came from.
type Origin struct {
	Page  int `json:"page,omitempty"`
	Table int `json:"table,omitempty"`
	Row   int `json:"row,omitempty"`
	Line  int `json:"line,omitempty"`
}

// RawRow is an extracted, uncleaned row. Every field may be empty.
type RawRow struct {
	SourceID    string `json:"source_id,omitempty"`
	Date        string `json:"date,omitempty"`
	Category    string `json:"category,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	Origin      Origin `json:"origin"`
}

// Record is a fully normalized row ready for persistence.
type Record struct {
	SourceID    string          `json:"source_id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Status      Status          `json:"status"`
	Description *string         `json:"description,omitempty"`
}

// DateLayout is the canonical calendar date representation.
const DateLayout = "2006-01-02"

// DateString returns the record date in canonical form.
func (r Record) DateString() string {
	return r.Date.Format(DateLayout)
}

// CivilDate builds a UTC-midnight time for the given calendar date.
func CivilDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
