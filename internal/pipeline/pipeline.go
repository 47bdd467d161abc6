// Package pipeline ties the chunked readers, the per-bank converter, the
// batch dedup pass and the storage loader into one ingest run. One Run call
// covers one upload invocation, which may carry several files of the same
// bank, kind and format.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zeebo/xxh3"

	"reconingest/internal/batch"
	"reconingest/internal/convert"
	"reconingest/internal/metrics"
	"reconingest/internal/model"
	"reconingest/internal/parser"
	"reconingest/internal/parser/csvfile"
	"reconingest/internal/parser/excel"
	"reconingest/internal/schema"
	"reconingest/internal/storage"
)

// ErrHeaderMismatch marks a file whose header row resolves to neither the
// booking nor the refund layout of the selected bank. Fatal for that file.
var ErrHeaderMismatch = errors.New("header does not match bank layout")

// Config carries the tunables of a run. Zero values fall back to the
// package defaults of the reader and loader.
type Config struct {
	ChunkRows   int
	InsertBatch int
}

// File is one uploaded spreadsheet held fully in memory.
type File struct {
	Name string
	Data []byte
}

// Request describes one upload invocation.
type Request struct {
	Bank   schema.Bank
	Kind   model.Kind
	Format parser.Format
	Files  []File
}

// Result aggregates what a Run got done before returning. On error it
// reflects the work committed up to the failing file.
type Result struct {
	FilesLoaded  int
	FilesSkipped int
	Bookings     int
	Refunds      int
}

// Pipeline is safe for sequential reuse across invocations; the duplicate
// detection window is per Run call.
type Pipeline struct {
	reg         *schema.Registry
	store       storage.Store
	chunkRows   int
	insertBatch int
}

func New(reg *schema.Registry, st storage.Store, cfg Config) *Pipeline {
	if cfg.ChunkRows <= 0 {
		cfg.ChunkRows = parser.DefaultBatchRows
	}
	if cfg.InsertBatch <= 0 {
		cfg.InsertBatch = storage.DefaultInsertBatch
	}
	return &Pipeline{
		reg:         reg,
		store:       st,
		chunkRows:   cfg.ChunkRows,
		insertBatch: cfg.InsertBatch,
	}
}

// Run processes the request's files in order. The first file-level failure
// aborts the invocation; earlier files stay committed and the returned
// Result counts them.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	var res Result

	reader, err := readerFor(req.Format)
	if err != nil {
		return res, err
	}
	conv, err := convert.New(p.reg, req.Bank)
	if err != nil {
		return res, err
	}

	seen := make(map[uint64]string, len(req.Files))
	for _, f := range req.Files {
		digest := xxh3.Hash(f.Data)
		if prev, dup := seen[digest]; dup {
			log.Printf("pipeline: skipping %q, identical to %q in this upload", f.Name, prev)
			res.FilesSkipped++
			continue
		}
		seen[digest] = f.Name

		start := time.Now()
		err := p.runFile(ctx, reader, conv, req, f, &res)
		metrics.RecordFile(string(req.Bank), string(req.Kind), err, time.Since(start))
		if err != nil {
			return res, fmt.Errorf("file %q: %w", f.Name, err)
		}
		res.FilesLoaded++
	}

	log.Printf("pipeline: done, files=%d skipped=%d bookings=%d refunds=%d",
		res.FilesLoaded, res.FilesSkipped, res.Bookings, res.Refunds)
	return res, nil
}

func (p *Pipeline) runFile(ctx context.Context, r parser.Reader, conv *convert.Converter, req Request, f File, res *Result) error {
	batches := 0
	err := r.ReadBatches(ctx, f.Data, p.chunkRows, func(b parser.Batch) error {
		batches++
		metrics.RecordChunks(string(req.Bank), 1)
		return p.runChunk(ctx, conv, req, b, res)
	})
	if err != nil {
		return err
	}
	if batches == 0 {
		return parser.ErrEmptyFile
	}
	return nil
}

// runChunk resolves the header against the layouts the kind allows and
// loads the chunk. For KindBoth, each layout that matches is processed, so
// a sheet carrying both column sets yields bookings and refunds in one
// pass.
func (p *Pipeline) runChunk(ctx context.Context, conv *convert.Converter, req Request, b parser.Batch, res *Result) error {
	kind := req.Kind
	matched := false
	if kind == model.KindBooking || kind == model.KindBoth {
		if idx, ok := conv.BookingIndex(b.Headers); ok {
			matched = true
			recs := batch.Bookings(conv.Bookings(b, idx))
			n, err := storage.LoadBookings(ctx, p.store, recs, p.insertBatch)
			res.Bookings += n
			metrics.RecordRows(string(req.Bank), "bookings_loaded", int64(n))
			if err != nil {
				return err
			}
		} else if kind == model.KindBooking {
			return fmt.Errorf("%w: booking columns missing", ErrHeaderMismatch)
		}
	}
	if kind == model.KindRefund || kind == model.KindBoth {
		if idx, ok := conv.RefundIndex(b.Headers); ok {
			matched = true
			recs := batch.Refunds(conv.Refunds(b, idx))
			n, err := storage.LoadRefunds(ctx, p.store, recs, p.insertBatch)
			res.Refunds += n
			metrics.RecordRows(string(req.Bank), "refunds_loaded", int64(n))
			if err != nil {
				return err
			}
		} else if kind == model.KindRefund {
			return fmt.Errorf("%w: refund columns missing", ErrHeaderMismatch)
		}
	}
	if !matched {
		return fmt.Errorf("%w: neither booking nor refund columns present", ErrHeaderMismatch)
	}
	return nil
}

func readerFor(f parser.Format) (parser.Reader, error) {
	switch f {
	case parser.FormatCSV:
		return csvfile.Reader{}, nil
	case parser.FormatExcel:
		return excel.Reader{}, nil
	}
	return nil, fmt.Errorf("%w: %q", parser.ErrUnsupportedFormat, f)
}
