package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"bronze/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if b, err := NewBackend(Config{}); err == nil || b != nil {
		t.Fatalf("NewBackend(empty) = %v, %v; want nil, error", b, err)
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	got := labelsToTags(metrics.Labels{"step": "flush", "run": "sales", "status": "success"})
	want := "run:sales,status:success,step:flush"
	if strings.Join(got, ",") != want {
		t.Fatalf("labelsToTags = %v, want %s", got, want)
	}
	if labelsToTags(nil) != nil {
		t.Fatal("labelsToTags(nil) should be nil")
	}
}

// TestBackend_SendsDogStatsD points the client at a local UDP socket and
// checks the wire lines after Flush.
func TestBackend_SendsDogStatsD(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp not available: %v", err)
	}
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), Namespace: "bronze."})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.FilesTotal, 2, metrics.Labels{"run": "sales", "outcome": "ingested"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.25, metrics.Labels{"run": "sales", "step": "flush", "status": "success"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var payload strings.Builder
	buf := make([]byte, 64*1024)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	for !strings.Contains(payload.String(), "|h") || !strings.Contains(payload.String(), "|c") {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read statsd packet: %v (got %q)", err, payload.String())
		}
		payload.Write(buf[:n])
	}

	out := payload.String()
	for _, want := range []string{
		"bronze.ingest_files_total:2|c|#outcome:ingested,run:sales",
		"bronze.ingest_step_duration_seconds:0.25|h|#run:sales,status:success,step:flush",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("payload %q missing %q", out, want)
		}
	}
}
