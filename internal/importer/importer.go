// Package importer reads bank statements into standardized statement lines.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/bankcat/internal/model"
)

// Parser reads one statement file.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (*Result, error)
	Format() string
}

// Result is the outcome of parsing a statement.
type Result struct {
	Lines []model.StatementLine
	// Dropped counts rows skipped for a missing date or description.
	Dropped int
	// OutOfRange counts kept rows dated outside the requested period.
	OutOfRange int
}

// Supported formats.
const (
	FormatCSV = "csv"
	FormatOFX = "ofx"
)

// New returns the parser for a format name. An empty format is inferred from
// the file name extension.
func New(format, filename, period string) (Parser, error) {
	if format == "" {
		format = FormatFromFilename(filename)
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return NewCSVParser(DefaultMapping(), period), nil
	case FormatOFX, "qfx":
		return NewOFXParser(period), nil
	default:
		return nil, fmt.Errorf("unsupported statement format %q", format)
	}
}

// FormatFromFilename guesses the format from a file extension.
func FormatFromFilename(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".ofx"), strings.HasSuffix(lower, ".qfx"):
		return FormatOFX
	default:
		return FormatCSV
	}
}

// periodRange returns the first instant of a "YYYY-MM" period and the first
// instant after it. Other period keys are opaque and have no range.
func periodRange(period string) (time.Time, time.Time, bool) {
	start, err := time.Parse("2006-01", strings.TrimSpace(period))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, start.AddDate(0, 1, 0), true
}

func countOutOfRange(lines []model.StatementLine, period string) int {
	start, end, ok := periodRange(period)
	if !ok {
		return 0
	}
	n := 0
	for i := range lines {
		d := lines[i].Date
		if d.Before(start) || !d.Before(end) {
			n++
		}
	}
	return n
}
