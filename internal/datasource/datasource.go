// Package datasource defines how the loader obtains the bytes of one input.
package datasource

import (
	"context"
	"io"
)

// Source opens one input for reading. Implementations must honor an already
// cancelled ctx and return an error that wraps the underlying cause so the
// loader can classify skips with errors.Is.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
