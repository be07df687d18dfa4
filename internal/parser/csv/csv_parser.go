// Package csv implements the streaming CSV parser used for bronze ingestion.
// It reads a header row plus body rows into a records.Raw, skipping malformed
// rows individually instead of failing the whole file.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"

	"bronze/internal/records"
)

// ErrNoHeader is returned by Parse when the input holds no header row, which
// includes zero-byte files and headers whose every cell is blank.
var ErrNoHeader = errors.New("csv: no header row")

// logSkipLimit caps the per-file "skipping row" log lines. Skips past the
// limit are still counted.
const logSkipLimit = 20

// Options configures the CSV parser behavior. The zero value parses
// comma-separated UTF-8 with strict quoting and keeps empty fields as "".
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing white space from each field value.
	TrimSpace bool

	// EmptyAsNull turns empty fields into absent values instead of "".
	EmptyAsNull bool

	// Encoding is a WHATWG encoding label ("windows-1250", "latin1", ...).
	// Empty means UTF-8 and no decoding layer is added.
	Encoding string

	// LazyQuotes lets a quote appear in an unquoted field and a non-doubled
	// quote appear in a quoted field.
	LazyQuotes bool
}

// CheckEncoding reports whether label names an encoding Parse can decode.
func CheckEncoding(label string) error {
	if label == "" {
		return nil
	}
	if _, err := htmlindex.Get(label); err != nil {
		return fmt.Errorf("csv encoding %q: %w", label, err)
	}
	return nil
}

// Parser parses CSV input according to Options. It holds no per-input state
// and is safe for concurrent use.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse consumes CSV records from r and returns them with the number of rows
// that were skipped because they could not be parsed or had a field count
// different from the header. Blank lines are ignored.
//
// A missing header yields ErrNoHeader. Read errors from r, as opposed to
// syntax errors within a row, abort the parse and are returned.
func (p *Parser) Parse(r io.Reader) (*records.Raw, int, error) {
	if p.opt.Encoding != "" {
		enc, err := htmlindex.Get(p.opt.Encoding)
		if err != nil {
			return nil, 0, fmt.Errorf("csv encoding %q: %w", p.opt.Encoding, err)
		}
		r = enc.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	// Width is enforced below so a short row is a skip, not a hard error.
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, ErrNoHeader
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	headers := normalizeHeaders(h)
	if headers == nil {
		return nil, 0, ErrNoHeader
	}

	out := &records.Raw{Columns: headers}
	var skipped int
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, skipped, fmt.Errorf("read csv: %w", err)
			}
			if skipped < logSkipLimit {
				log.Printf("csv: skipping row at line %d: %v", pe.StartLine, pe.Err)
			}
			skipped++
			continue
		}

		if len(row) != len(headers) {
			if skipped < logSkipLimit {
				line, _ := cr.FieldPos(0)
				log.Printf("csv: skipping row at line %d: incorrect number of fields (expected %d, got %d)", line, len(headers), len(row))
			}
			skipped++
			continue
		}

		vals := make([]any, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			vals[i] = p.value(val)
		}
		out.Rows = append(out.Rows, vals)
	}

	return out, skipped, nil
}

func (p *Parser) value(s string) any {
	if s == "" && p.opt.EmptyAsNull {
		return nil
	}
	return s
}

// keyFor returns the column key for index idx, using headers when available,
// otherwise synthesizing a "col_N" name.
func keyFor(idx int, headers []string) string {
	if idx < len(headers) && headers[idx] != "" {
		return headers[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

// normalizeHeaders strips a BOM, trims and NFC-normalizes header cells so
// that visually identical names compare equal. Case is preserved; canonical
// naming is the rename table's job. Blank cells become "col_N". A header
// with no non-blank cell, such as a file holding only a BOM, yields nil.
func normalizeHeaders(h []string) []string {
	h = StripHeaderBOM(h)
	res := make([]string, len(h))
	named := false
	for i, col := range h {
		res[i] = norm.NFC.String(strings.TrimSpace(col))
		named = named || res[i] != ""
	}
	if !named {
		return nil
	}
	for i := range res {
		res[i] = keyFor(i, res)
	}
	return res
}
