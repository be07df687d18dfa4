package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to columns) and return the number of rows
// written. It is called once per chunk and must cancel promptly when ctx is
// done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into chunks of chunkSize and
// calls copyFn for each non-empty chunk. It returns the total reported by
// copyFn and the first error encountered; rows already written by earlier
// chunks stay written.
//
// Cancellation: returns (total, ctx.Err()) when canceled.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	chunkSize int,
	copyFn CopyFn,
) (int64, error) {
	if chunkSize <= 0 {
		return 0, fmt.Errorf("chunkSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total     int64
		chunks    int64
		chunk     = make([][]any, 0, chunkSize)
		start     = time.Now()
		lastFlush = start
	)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, chunk)
		total += n
		chunk = chunk[:0]
		if err != nil {
			log.Printf("sink: copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		chunks++
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		if chunks > 1 {
			log.Printf("sink: chunk #%d rows=%s rps=%.0f total=%s elapsed=%s",
				chunks, humanize.Comma(n), rps, humanize.Comma(total),
				now.Sub(start).Truncate(time.Millisecond))
		}
		lastFlush = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			chunk = append(chunk, row)
			if len(chunk) >= chunkSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
