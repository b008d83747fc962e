// Package errlog appends per-run diagnostic records to a plain-text file.
package errlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"reactir/internal/instrument"
	"reactir/internal/logging"
	"reactir/internal/metrics"
)

const (
	header    = "--- ERROR LOG ---"
	separator = "------------------------------------------------------------"
)

// Sink is an append-only error log shared by both acquisition loops.
// Writes never fail the caller: problems are reported to the logger instead.
type Sink struct {
	mu      sync.Mutex
	path    string
	logger  *slog.Logger
	metrics *metrics.Metrics
	count   atomic.Int64
	now     func() time.Time
}

// Open prepares a sink writing to path, creating its directory.
func Open(path string, logger *slog.Logger, m *metrics.Metrics) (*Sink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("error log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create error log directory: %w", err)
	}
	return &Sink{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "errlog"),
		metrics: m,
		now:     time.Now,
	}, nil
}

// Path returns the file the sink appends to.
func (s *Sink) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Count returns the number of records written since Open.
func (s *Sink) Count() int64 {
	if s == nil {
		return 0
	}
	return s.count.Load()
}

// Record appends one block describing what failed and err. Unexpected faults
// carry the current goroutine stack. Calling Record on a nil sink is a no-op.
func (s *Sink) Record(what string, err error) {
	if s == nil {
		return
	}
	kind := instrument.KindOf(err)
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Timestamp: %s\n", s.now().Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, "Context: %s\n", what)
	if err != nil {
		fmt.Fprintf(&b, "Exception: %s: %v\n", kind, err)
		if kind == instrument.FaultUnexpected {
			b.WriteString("Trace:\n")
			b.Write(debug.Stack())
			if !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
		}
	}
	b.WriteString(separator)
	b.WriteByte('\n')

	s.count.Add(1)
	if err != nil {
		s.metrics.Fault(string(kind))
	}
	if writeErr := s.append(b.String()); writeErr != nil {
		s.logger.Error("error log write failed",
			logging.String("path", s.path),
			logging.Error(writeErr),
			logging.String(logging.FieldEventType, "error_log_write_failed"),
		)
	}

	attrs := []logging.Attr{
		logging.String("context", what),
		logging.String("kind", string(kind)),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	if err == nil || kind == instrument.FaultTransient {
		s.logger.Warn("fault recorded", logging.Args(attrs...)...)
		return
	}
	s.logger.Error("fault recorded", logging.Args(attrs...)...)
}

func (s *Sink) append(block string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(block); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
