package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF indicates the input does not start with a PDF header.
var ErrNotPDF = errors.New("input is not a PDF document")

const (
	pdfMagic = "%PDF-"

	// defaultColumnGap is the horizontal gap, in font sizes, that separates
	// two cells on the same visual line.
	defaultColumnGap = 1.5
	minTableColumns  = 2
)

// IsPDF reports whether data starts with the PDF magic header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte(pdfMagic))
}

// PDFParser opens PDF documents with github.com/ledongthuc/pdf.
// Tables are recovered from positioned text: each visual line is split into
// cells on wide horizontal gaps, and runs of consecutive multi-cell lines
// form a table.
type PDFParser struct {
	logger    *slog.Logger
	columnGap float64
}

// NewPDFParser creates a PDF parser.
func NewPDFParser(logger *slog.Logger) *PDFParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFParser{logger: logger, columnGap: defaultColumnGap}
}

// WithColumnGap sets the gap, in multiples of the font size, that splits cells.
func (p *PDFParser) WithColumnGap(gap float64) *PDFParser {
	if gap > 0 {
		p.columnGap = gap
	}
	return p
}

// Open parses the PDF cross-reference structure. Content streams are read lazily.
func (p *PDFParser) Open(ctx context.Context, data []byte) (doc Document, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty pdf content")
	}
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}

	defer recoverPDF(&err, "open pdf")

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfDocument{reader: r, columnGap: p.columnGap, logger: p.logger}, nil
}

// recoverPDF turns a panic raised by the pdf library into an error.
func recoverPDF(err *error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: malformed pdf: %v", op, r)
	}
}

type pdfDocument struct {
	reader    *pdf.Reader
	columnGap float64
	logger    *slog.Logger

	lines [][]visualLine // per page, cached
}

// visualLine is the text of one row on a page, split into cells.
type visualLine struct {
	cells []string
}

func (d *pdfDocument) Tables(ctx context.Context) ([]Table, error) {
	pages, err := d.pageLines(ctx)
	if err != nil {
		return nil, err
	}

	var tables []Table
	for i, lines := range pages {
		tables = append(tables, groupTables(i+1, lines)...)
	}
	return tables, nil
}

func (d *pdfDocument) Text(ctx context.Context) (string, error) {
	pages, err := d.pageLines(ctx)
	if err != nil {
		return d.plainText()
	}

	var b strings.Builder
	for _, lines := range pages {
		for _, line := range lines {
			b.WriteString(strings.Join(line.cells, " "))
			b.WriteByte('\n')
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return d.plainText()
	}
	return b.String(), nil
}

// plainText is the library's own text extraction, used when positioned
// rows are unavailable.
func (d *pdfDocument) plainText() (text string, err error) {
	defer recoverPDF(&err, "read text")

	r, err := d.reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(b), nil
}

func (d *pdfDocument) pageLines(ctx context.Context) ([][]visualLine, error) {
	if d.lines != nil {
		return d.lines, nil
	}

	var pages [][]visualLine
	failed := 0
	for i := 1; i <= d.reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := d.reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}

		lines, err := d.readPage(page)
		if err != nil {
			failed++
			d.logger.Warn("skipping unreadable pdf page", "page", i, "error", err)
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, lines)
	}

	if failed > 0 && failed == len(pages) {
		return nil, fmt.Errorf("no readable pages in %d", failed)
	}
	d.lines = pages
	return pages, nil
}

func (d *pdfDocument) readPage(page pdf.Page) (lines []visualLine, err error) {
	defer recoverPDF(&err, "read page")

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	// top of the page first
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Position > rows[j].Position
	})

	for _, row := range rows {
		cells := splitCells(row.Content, d.columnGap)
		if len(cells) == 0 {
			continue
		}
		lines = append(lines, visualLine{cells: cells})
	}
	return lines, nil
}

// splitCells joins the text runs of a row and starts a new cell wherever the
// horizontal gap to the previous run exceeds gap font sizes.
func splitCells(content pdf.TextHorizontal, gap float64) []string {
	texts := make([]pdf.Text, 0, len(content))
	for _, t := range content {
		if t.S != "" {
			texts = append(texts, t)
		}
	}
	sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

	var (
		cells   []string
		current strings.Builder
		end     float64
	)
	flush := func() {
		if s := strings.Join(strings.Fields(current.String()), " "); s != "" {
			cells = append(cells, s)
		}
		current.Reset()
	}

	for i, t := range texts {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		if i > 0 && t.X-end > gap*size {
			flush()
		} else if i > 0 && t.X-end > size*0.2 && !strings.HasSuffix(current.String(), " ") {
			current.WriteByte(' ')
		}
		current.WriteString(t.S)
		end = t.X + t.W
	}
	flush()
	return cells
}

// groupTables turns runs of consecutive multi-cell lines into tables.
func groupTables(page int, lines []visualLine) []Table {
	var (
		tables  []Table
		current [][]string
	)
	closeTable := func() {
		if len(current) > 1 {
			tables = append(tables, Table{Page: page, Rows: current})
		}
		current = nil
	}

	for _, line := range lines {
		if len(line.cells) < minTableColumns {
			closeTable()
			continue
		}
		current = append(current, line.cells)
	}
	closeTable()
	return tables
}
