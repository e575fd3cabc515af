// Package sniffer infers the semantic role of table columns from their content.
// Ledger PDFs carry inconsistent or missing headers, so roles are assigned by
// matching sampled cells against value patterns instead of header names.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Role is a semantic column role.
type Role int

const (
	RoleSourceID Role = iota
	RoleDate
	RoleCategory
	RoleAmount
	RoleStatus
	RoleDescription
)

func (r Role) String() string {
	switch r {
	case RoleSourceID:
		return "source_id"
	case RoleDate:
		return "date"
	case RoleCategory:
		return "category"
	case RoleAmount:
		return "amount"
	case RoleStatus:
		return "status"
	case RoleDescription:
		return "description"
	}
	return "unknown"
}

// MaxSampleRows is the number of leading rows inspected per table.
const MaxSampleRows = 3

// MinRowCells is the narrowest row that is treated as ledger data.
const MinRowCells = 6

// descriptionMinLength is the length a sampled cell must exceed to be picked as description.
const descriptionMinLength = 20

// classifier matches a cell against a single role.
type classifier struct {
	role    Role
	pattern *regexp.Regexp
}

// classifiers are tested in this order for every cell.
var classifiers = []classifier{
	{RoleSourceID, regexp.MustCompile(`(?i)^INV-\d{4}-\d{3}$`)},
	{RoleDate, regexp.MustCompile(`^\d{1,2}[-/]\d{1,2}[-/]\d{4}$`)},
	{RoleCategory, regexp.MustCompile(`(?i)^(Servicios|Inventario|Gastos|Ventas)$`)},
	{RoleAmount, regexp.MustCompile(`\$[\d.,]+`)},
	{RoleStatus, regexp.MustCompile(`(?i)^(activo|pendiente|completado|cancelado)$`)},
}

// ColumnRoles maps each role to a column index, -1 when unassigned.
type ColumnRoles struct {
	SourceID    int
	Date        int
	Category    int
	Amount      int
	Status      int
	Description int
}

// Unassigned returns a ColumnRoles with every role set to -1.
func Unassigned() ColumnRoles {
	return ColumnRoles{
		SourceID:    -1,
		Date:        -1,
		Category:    -1,
		Amount:      -1,
		Status:      -1,
		Description: -1,
	}
}

// Get returns the column assigned to role.
func (c ColumnRoles) Get(role Role) int {
	switch role {
	case RoleSourceID:
		return c.SourceID
	case RoleDate:
		return c.Date
	case RoleCategory:
		return c.Category
	case RoleAmount:
		return c.Amount
	case RoleStatus:
		return c.Status
	case RoleDescription:
		return c.Description
	}
	return -1
}

func (c *ColumnRoles) set(role Role, col int) {
	switch role {
	case RoleSourceID:
		c.SourceID = col
	case RoleDate:
		c.Date = col
	case RoleCategory:
		c.Category = col
	case RoleAmount:
		c.Amount = col
	case RoleStatus:
		c.Status = col
	case RoleDescription:
		c.Description = col
	}
}

// claimed reports whether col already holds a role.
func (c ColumnRoles) claimed(col int) bool {
	return col == c.SourceID || col == c.Date || col == c.Category ||
		col == c.Amount || col == c.Status || col == c.Description
}

// Complete reports whether the roles required to accept a row are assigned.
func (c ColumnRoles) Complete() bool {
	return c.SourceID >= 0 && c.Date >= 0 && c.Category >= 0
}

// ClassifyColumns assigns roles to columns from a handful of sample rows.
//
// Rows narrower than MinRowCells are not sampled. Cells are visited row by
// row, in column order, and the classifiers run in priority order; the
// first one that matches an unclaimed role on an unclaimed column claims
// it. The description role then goes to the first remaining column whose
// cell in the first data row is longer than 20 characters, or to the last
// column.
func ClassifyColumns(sampleRows [][]string) ColumnRoles {
	roles := Unassigned()

	for _, row := range sampleRows {
		if len(row) < MinRowCells {
			continue
		}
		for col, raw := range row {
			cell := strings.TrimSpace(raw)
			if cell == "" {
				continue
			}
			for _, c := range classifiers {
				if roles.Get(c.role) >= 0 || roles.claimed(col) {
					continue
				}
				if c.pattern.MatchString(cell) {
					roles.set(c.role, col)
					break
				}
			}
		}
	}

	roles.Description = pickDescription(sampleRows, roles)
	return roles
}

// pickDescription selects the description column from the first data row.
// sampleRows[0] is the header, so the reference is sampleRows[1] when present.
func pickDescription(sampleRows [][]string, roles ColumnRoles) int {
	if len(sampleRows) == 0 {
		return -1
	}
	ref := sampleRows[0]
	if len(sampleRows) > 1 {
		ref = sampleRows[1]
	}

	for col, raw := range ref {
		if roles.claimed(col) {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(raw)) > descriptionMinLength {
			return col
		}
	}
	return len(ref) - 1
}

// Fingerprint hashes a header row so identical table layouts can be recognised
// across documents.
func Fingerprint(header []string) string {
	var normalized []string
	for _, h := range header {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
