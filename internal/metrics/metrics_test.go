package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordFile_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	// Success case.
	RecordFile("karur_vysya", "booking", nil, 2*time.Second)

	// Failure case.
	err := errors.New("boom")
	RecordFile("icici", "refund", err, 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	// First call: success.
	cc0 := fb.callsCounters[0]
	if cc0.name != "ingest_files_total" || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=ingest_files_total, delta=1", cc0)
	}
	if got := cc0.labels["bank"]; got != "karur_vysya" {
		t.Fatalf("counter[0].labels[bank]=%q; want %q", got, "karur_vysya")
	}
	if got := cc0.labels["kind"]; got != "booking" {
		t.Fatalf("counter[0].labels[kind]=%q; want %q", got, "booking")
	}
	if got := cc0.labels["status"]; got != "success" {
		t.Fatalf("counter[0].labels[status]=%q; want %q", got, "success")
	}

	h0 := fb.callsHistograms[0]
	if h0.name != "ingest_file_duration_seconds" {
		t.Fatalf("hist[0].name=%q; want ingest_file_duration_seconds", h0.name)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	// Second call: failure.
	cc1 := fb.callsCounters[1]
	if cc1.labels["bank"] != "icici" || cc1.labels["kind"] != "refund" {
		t.Fatalf("counter[1] labels bank/kind = %v; want icici/refund", cc1.labels)
	}
	if cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want %q", cc1.labels["status"], "failure")
	}

	h1 := fb.callsHistograms[1]
	if h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordRowsAndChunks(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRows("karur_vysya", "bookings_loaded", 3)
	RecordRows("karur_vysya", "bookings_loaded", 0) // should be ignored
	RecordRows("icici", "refunds_loaded", 5)
	RecordChunks("karur_vysya", 2)

	if len(fb.callsCounters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.callsCounters))
	}

	// 1) bookings
	c0 := fb.callsCounters[0]
	if c0.name != "ingest_rows_total" || c0.delta != 3 {
		t.Fatalf("counter[0] = %#v; want name=ingest_rows_total, delta=3", c0)
	}
	if c0.labels["bank"] != "karur_vysya" || c0.labels["kind"] != "bookings_loaded" {
		t.Fatalf("counter[0] labels = %v; want bank=karur_vysya, kind=bookings_loaded", c0.labels)
	}

	// 2) refunds
	c1 := fb.callsCounters[1]
	if c1.name != "ingest_rows_total" || c1.delta != 5 {
		t.Fatalf("counter[1] = %#v; want name=ingest_rows_total, delta=5", c1)
	}
	if c1.labels["bank"] != "icici" || c1.labels["kind"] != "refunds_loaded" {
		t.Fatalf("counter[1] labels = %v; want bank=icici, kind=refunds_loaded", c1.labels)
	}

	// 3) chunks
	c2 := fb.callsCounters[2]
	if c2.name != "ingest_chunks_total" || c2.delta != 2 {
		t.Fatalf("counter[2] = %#v; want name=ingest_chunks_total, delta=2", c2)
	}
	if c2.labels["bank"] != "karur_vysya" {
		t.Fatalf("counter[2].labels[bank]=%q; want %q", c2.labels["bank"], "karur_vysya")
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
