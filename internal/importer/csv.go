package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bankcat/internal/model"
)

// ErrMissingColumn is returned when a required column is not in the header.
var ErrMissingColumn = errors.New("missing required column")

// Mapping lists the accepted header names for each column. Matching is
// case-insensitive and ignores surrounding whitespace. Amount is a signed
// column used when the statement has no separate debit and credit columns.
type Mapping struct {
	Date        []string
	Description []string
	Debit       []string
	Credit      []string
	Amount      []string
	Balance     []string
	DateLayouts []string
}

// DefaultMapping covers the headers common bank exports use.
func DefaultMapping() Mapping {
	return Mapping{
		Date:        []string{"date", "transaction date", "tx_date", "txn date", "posting date", "value date"},
		Description: []string{"description", "narration", "details", "particulars", "transaction details", "memo"},
		Debit:       []string{"debit", "withdrawal", "withdrawals", "dr", "money out", "paid out"},
		Credit:      []string{"credit", "deposit", "deposits", "cr", "money in", "paid in"},
		Amount:      []string{"amount", "transaction amount"},
		Balance:     []string{"balance", "running balance", "closing balance"},
		// Day-first layouts are tried before month-first ones.
		DateLayouts: []string{
			"2006-01-02",
			"02/01/2006",
			"01/02/2006",
			"2006/01/02",
			"02-01-2006",
			"02 Jan 2006",
			"2 Jan 2006",
			"Jan 2, 2006",
			"20060102",
		},
	}
}

type columns struct {
	date, description, debit, credit, amount, balance int
}

// CSVParser reads a headed CSV statement.
type CSVParser struct {
	period  string
	mapping Mapping
}

// NewCSVParser creates a CSV parser. Period, when it is a "YYYY-MM" key, is
// only used to count rows dated outside it.
func NewCSVParser(mapping Mapping, period string) *CSVParser {
	return &CSVParser{mapping: mapping, period: period}
}

// Format returns the parser name.
func (p *CSVParser) Format() string { return FormatCSV }

// Parse reads the header row, resolves the mapped columns and converts every
// data row.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	cols, err := p.resolveColumns(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	row := 1
	for {
		row++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if isBlank(rec) {
			continue
		}

		line, ok, err := p.parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if !ok {
			result.Dropped++
			continue
		}
		result.Lines = append(result.Lines, line)
	}

	result.OutOfRange = countOutOfRange(result.Lines, p.period)
	slog.Info("parsed CSV statement",
		"rows", len(result.Lines),
		"dropped", result.Dropped,
		"out_of_range", result.OutOfRange)
	return result, nil
}

func (p *CSVParser) resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[strings.ToLower(n)]; ok {
				return i
			}
		}
		return -1
	}

	cols := columns{
		date:        find(p.mapping.Date),
		description: find(p.mapping.Description),
		debit:       find(p.mapping.Debit),
		credit:      find(p.mapping.Credit),
		amount:      find(p.mapping.Amount),
		balance:     find(p.mapping.Balance),
	}
	switch {
	case cols.date < 0:
		return cols, fmt.Errorf("%w: date", ErrMissingColumn)
	case cols.description < 0:
		return cols, fmt.Errorf("%w: description", ErrMissingColumn)
	case cols.debit < 0 && cols.credit < 0 && cols.amount < 0:
		return cols, fmt.Errorf("%w: debit, credit or amount", ErrMissingColumn)
	}
	return cols, nil
}

// parseRow converts one record. It reports false for rows that carry no
// usable date or description.
func (p *CSVParser) parseRow(rec []string, cols columns) (model.StatementLine, bool, error) {
	var line model.StatementLine

	desc := strings.TrimSpace(field(rec, cols.description))
	rawDate := strings.TrimSpace(field(rec, cols.date))
	if desc == "" || rawDate == "" {
		return line, false, nil
	}
	date, ok := parseDate(rawDate, p.mapping.DateLayouts)
	if !ok {
		return line, false, nil
	}
	line.Date = date
	line.Description = desc

	debit, err := parseAmount(field(rec, cols.debit))
	if err != nil {
		return line, false, fmt.Errorf("parsing debit: %w", err)
	}
	credit, err := parseAmount(field(rec, cols.credit))
	if err != nil {
		return line, false, fmt.Errorf("parsing credit: %w", err)
	}
	line.Debit = debit.Abs()
	line.Credit = credit.Abs()

	if cols.debit < 0 && cols.credit < 0 {
		amount, err := parseAmount(field(rec, cols.amount))
		if err != nil {
			return line, false, fmt.Errorf("parsing amount: %w", err)
		}
		if amount.IsNegative() {
			line.Debit = amount.Neg()
		} else {
			line.Credit = amount
		}
	}

	if raw := strings.TrimSpace(field(rec, cols.balance)); raw != "" {
		balance, err := parseAmount(raw)
		if err != nil {
			return line, false, fmt.Errorf("parsing balance: %w", err)
		}
		line.Balance = decimal.NewNullDecimal(balance)
	}

	return line, true, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount accepts thousands separators, currency symbols, a trailing
// Dr/Cr marker and accounting parentheses. An empty cell is zero. The value
// is rounded to cents.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "DR"):
		negative = true
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "CR"):
		s = s[:len(s)-2]
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), nil
}
