// Package parser defines the contract between input formats and the loader.
package parser

import (
	"io"

	"bronze/internal/records"
)

// Parser turns one input stream into a raw record set. The int result is the
// number of malformed rows that were skipped; a non-nil error means the input
// could not be parsed at all.
type Parser interface {
	Parse(r io.Reader) (*records.Raw, int, error)
}
