package errlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reactir/internal/instrument"
	"reactir/internal/logging"
	"reactir/internal/metrics"
)

func TestRecordWritesBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "errors_doc.log")
	sink, err := Open(path, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sink.now = func() time.Time { return time.Date(2025, 7, 21, 15, 4, 5, 0, time.UTC) }

	sink.Record("trend tick: probe temperature", instrument.Transient("ns=2;s=T", errors.New("BadNotReadable")))
	sink.Record("raw loop waiting for run", nil)

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(content)
	if strings.Count(text, header) != 2 || strings.Count(text, separator+"\n") != 2 {
		t.Fatalf("expected two blocks, got %q", text)
	}
	if !strings.Contains(text, "Timestamp: 2025-07-21 15:04:05.000\n") {
		t.Fatalf("missing timestamp line: %q", text)
	}
	if !strings.Contains(text, "Context: trend tick: probe temperature\n") {
		t.Fatalf("missing context line: %q", text)
	}
	if !strings.Contains(text, "Exception: transient: transient fault reading ns=2;s=T: BadNotReadable\n") {
		t.Fatalf("missing exception line: %q", text)
	}
	if strings.Contains(text, "Trace:") {
		t.Fatalf("transient faults should not carry a trace: %q", text)
	}
	if sink.Count() != 2 {
		t.Fatalf("expected count 2, got %d", sink.Count())
	}
}

func TestUnexpectedFaultIncludesTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	m := metrics.New()
	sink, err := Open(path, logging.NewNop(), m)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sink.Record("raw tick: persist", errors.New("disk full"))

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(content), "Exception: unexpected: disk full\nTrace:\n") {
		t.Fatalf("expected trace after exception: %q", content)
	}
}

func TestConcurrentRecordsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	sink, err := Open(path, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	const writers, perWriter = 4, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				sink.Record(fmt.Sprintf("writer %d record %d", w, i), instrument.Transient("n", errors.New("x")))
			}
		}(w)
	}
	wg.Wait()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	blocks := strings.Split(strings.TrimSuffix(string(content), separator+"\n"), separator+"\n")
	if len(blocks) != writers*perWriter {
		t.Fatalf("expected %d blocks, got %d", writers*perWriter, len(blocks))
	}
	for _, block := range blocks {
		if !strings.HasPrefix(block, header+"\n") || strings.Count(block, "Context:") != 1 {
			t.Fatalf("interleaved block: %q", block)
		}
	}
}

func TestWriteFailureDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(filepath.Join(dir, "errors.log"), logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	// A directory at the log path makes every append fail.
	if err := os.Mkdir(sink.Path(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sink.Record("context", errors.New("boom"))
	if sink.Count() != 1 {
		t.Fatalf("expected record to be counted, got %d", sink.Count())
	}

	var nilSink *Sink
	nilSink.Record("ignored", errors.New("boom"))
	if nilSink.Count() != 0 || nilSink.Path() != "" {
		t.Fatal("expected nil sink to be inert")
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  ", logging.NewNop(), nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
