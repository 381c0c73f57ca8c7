// Package columnar writes tidy tables to disk: parquet for analysis tables
// and CSV for reference tables. Both writers emit the table in fixed-size row
// chunks, in order, reporting progress after each chunk.
package columnar

import (
	"errors"
	"log/slog"
)

// ErrChunkSize is returned for a chunk size below one row.
var ErrChunkSize = errors.New("chunk size must be positive")

// Progress is reported after each chunk reaches the writer.
type Progress struct {
	Path    string
	Chunk   int // 1-based
	Written int
	Total   int
}

// ProgressFunc observes chunk progress. It runs on the writing goroutine.
type ProgressFunc func(Progress)

// eachChunk calls fn for consecutive [start, end) ranges of at most size rows.
func eachChunk(total, size int, fn func(chunk, start, end int) error) error {
	chunk := 0
	for start := 0; start < total; start += size {
		end := min(start+size, total)
		chunk++
		if err := fn(chunk, start, end); err != nil {
			return err
		}
	}
	return nil
}

func report(logger *slog.Logger, onChunk ProgressFunc, p Progress) {
	logger.Debug("chunk written", "path", p.Path, "chunk", p.Chunk, "rows_written", p.Written, "total_rows", p.Total)
	if onChunk != nil {
		onChunk(p)
	}
}
