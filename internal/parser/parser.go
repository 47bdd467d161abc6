// Package parser defines the chunked-reader contract shared by the file
// format implementations. A reader turns raw uploaded bytes into a finite,
// non-restartable sequence of bounded row batches; every cell is surfaced as
// a raw string so no format-level type inference can corrupt order numbers
// or dates.
package parser

import (
	"context"
	"errors"
	"fmt"
)

// DefaultBatchRows bounds the number of data rows per emitted batch.
const DefaultBatchRows = 50000

var (
	// ErrUnsupportedFormat marks a file whose declared or detected format
	// is neither a recognized spreadsheet nor CSV. Fatal for that file.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile marks a file with zero data rows. Fatal for that file;
	// nothing is inserted.
	ErrEmptyFile = errors.New("no data rows in file")
)

// Batch is one bounded slice of data rows sharing the file's header row.
// Headers are raw (not normalized); rows are padded to the header width.
type Batch struct {
	Headers []string
	Rows    [][]string
}

// BatchFunc consumes successive batches. Returning an error stops the read
// and propagates the error to the ReadBatches caller.
type BatchFunc func(Batch) error

// Reader streams one uploaded file as row batches. Implementations emit
// zero batches for inputs without data rows; the orchestrator decides that
// this is fatal.
type Reader interface {
	ReadBatches(ctx context.Context, data []byte, batchRows int, fn BatchFunc) error
}

// Format tags the declared file format of an upload.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat validates a format tag supplied by the caller.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatExcel:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}
