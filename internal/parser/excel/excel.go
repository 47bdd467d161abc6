// Package excel implements the spreadsheet path of the chunked reader on
// top of excelize. Unlike the CSV path, XLSX is a zip archive and has to be
// parsed in full before rows can be sliced; batching here bounds what flows
// into the downstream conversion and load stages, not the parse itself.
// That is an accepted limitation of the format.
package excel

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"reconingest/internal/parser"
)

// Reader is the XLSX implementation of parser.Reader.
type Reader struct{}

// ReadBatches parses data as a workbook, reads the first sheet, and invokes
// fn once per batch of at most batchRows data rows. The sheet's first row is
// the header. All cells are read as display text; excelize performs no
// numeric or date coercion on GetRows output with raw cell values preserved
// as strings.
func (Reader) ReadBatches(ctx context.Context, data []byte, batchRows int, fn parser.BatchFunc) error {
	if batchRows <= 0 {
		batchRows = parser.DefaultBatchRows
	}

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: not a readable workbook: %v", parser.ErrUnsupportedFormat, err)
	}
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	if sheet == "" {
		return fmt.Errorf("%w: workbook has no sheets", parser.ErrUnsupportedFormat)
	}
	rows, err := xl.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		// Header-only or fully empty sheet: zero batches.
		return nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	body := rows[1:]
	for start := 0; start < len(body); start += batchRows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := start + batchRows
		if end > len(body) {
			end = len(body)
		}

		batch := make([][]string, 0, end-start)
		for _, rec := range body[start:end] {
			// GetRows drops trailing empty cells; pad to header width.
			row := make([]string, len(headers))
			for i := 0; i < len(rec) && i < len(headers); i++ {
				row[i] = strings.TrimSpace(rec[i])
			}
			batch = append(batch, row)
		}
		if err := fn(parser.Batch{Headers: headers, Rows: batch}); err != nil {
			return err
		}
	}
	return nil
}
