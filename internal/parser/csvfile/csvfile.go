// Package csvfile implements the streaming CSV path of the chunked reader.
//
// Rows are decoded one at a time with encoding/csv and accumulated into
// bounded batches, so peak memory is one batch plus the decoder's buffer
// regardless of file size. Per-row problems are soft: the row is logged and
// skipped, and the stream continues.
//
// Bank exports are not reliably UTF-8; a UTF-8 BOM is stripped when present
// and files that fail UTF-8 validation are decoded as Windows-1252 before
// reaching encoding/csv.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"reconingest/internal/parser"
)

// Reader is the CSV implementation of parser.Reader.
type Reader struct{}

// ReadBatches parses data as CSV and invokes fn once per batch of at most
// batchRows data rows. The first record is the header row. Inputs with no
// data rows produce zero fn calls and a nil error.
func (Reader) ReadBatches(ctx context.Context, data []byte, batchRows int, fn parser.BatchFunc) error {
	if batchRows <= 0 {
		batchRows = parser.DefaultBatchRows
	}

	cr := csv.NewReader(textReader(data))
	// Width is enforced against the header after reading each row.
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if err == io.EOF {
		// No header, no data: zero batches.
		return nil
	}
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	batch := make([][]string, 0, batchRows)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := fn(parser.Batch{Headers: headers, Rows: batch})
		batch = make([][]string, 0, batchRows)
		return err
	}

	line := 1 // header consumed already
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return flush()
		}
		line++

		if err != nil {
			// Soft-fail this row and continue.
			log.Printf("csv: skipping row %d: %v", line, err)
			continue
		}
		if len(rec) > len(headers) {
			log.Printf("csv: skipping row %d: expected %d fields, got %d", line, len(headers), len(rec))
			continue
		}

		row := make([]string, len(headers))
		for i, v := range rec {
			row[i] = strings.TrimSpace(v)
		}
		batch = append(batch, row)
		if len(batch) >= batchRows {
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

// textReader strips a UTF-8 BOM and falls back to Windows-1252 decoding for
// inputs that are not valid UTF-8.
func textReader(data []byte) io.Reader {
	if utf8.Valid(data) {
		dec := unicode.UTF8BOM.NewDecoder()
		return transform.NewReader(bytes.NewReader(data), dec)
	}
	return transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder())
}
