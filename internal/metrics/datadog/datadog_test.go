package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"reconingest/internal/metrics"
)

// listenUDP opens a local UDP socket standing in for a DogStatsD agent.
func listenUDP(t *testing.T) (net.PacketConn, string) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().String()
}

// readPayloads drains datagrams from conn until the deadline and returns
// everything received as one string.
func readPayloads(t *testing.T, conn net.PacketConn) string {
	t.Helper()
	var sb strings.Builder
	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, _, err := conn.ReadFrom(buf)
		if n > 0 {
			sb.Write(buf[:n])
			sb.WriteByte('\n')
			// Keep draining briefly in case the client split the flush.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			continue
		}
		if err != nil {
			break
		}
	}
	return sb.String()
}

func TestNewBackendRequiresAddr(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("NewBackend with empty Addr should fail")
	}
}

func TestIncCounterReachesAgent(t *testing.T) {
	conn, addr := listenUDP(t)

	b, err := NewBackend(Config{Addr: addr, Namespace: "reconingest."})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter("ingest_rows_total", 3, metrics.Labels{
		"bank": "karur_vysya",
		"kind": "bookings_loaded",
	})

	// Close flushes buffered data to the socket.
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := readPayloads(t, conn)
	if !strings.Contains(got, "reconingest.ingest_rows_total") {
		t.Fatalf("payload %q does not contain namespaced metric name", got)
	}
	if !strings.Contains(got, "|c") {
		t.Fatalf("payload %q is not a count metric", got)
	}
	if !strings.Contains(got, "bank:karur_vysya") || !strings.Contains(got, "kind:bookings_loaded") {
		t.Fatalf("payload %q is missing label tags", got)
	}
}

func TestObserveHistogramReachesAgent(t *testing.T) {
	conn, addr := listenUDP(t)

	b, err := NewBackend(Config{Addr: addr})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.ObserveHistogram("ingest_file_duration_seconds", 1.5, metrics.Labels{
		"bank": "icici",
	})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := readPayloads(t, conn)
	if !strings.Contains(got, "ingest_file_duration_seconds") {
		t.Fatalf("payload %q does not contain metric name", got)
	}
	if !strings.Contains(got, "|h") {
		t.Fatalf("payload %q is not a histogram metric", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	b := &Backend{}

	// All calls are no-ops on a zero-value backend.
	b.IncCounter("ingest_rows_total", 1, metrics.Labels{"bank": "b"})
	b.ObserveHistogram("ingest_file_duration_seconds", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush on zero-value backend: %v", err)
	}
}

func TestLabelsToTags(t *testing.T) {
	if tags := labelsToTags(nil); tags != nil {
		t.Fatalf("labelsToTags(nil) = %v, want nil", tags)
	}
	tags := labelsToTags(metrics.Labels{"bank": "hdfc", "status": "success"})
	if len(tags) != 2 {
		t.Fatalf("tags = %v, want 2 entries", tags)
	}
	joined := strings.Join(tags, ",")
	if !strings.Contains(joined, "bank:hdfc") || !strings.Contains(joined, "status:success") {
		t.Fatalf("tags = %v", tags)
	}
}
