package supervisor

import "fmt"

// Summary reports what one session persisted.
type Summary struct {
	RunID        string
	DocumentID   int64
	Document     string
	ErrorLogPath string
	Spectra      int
	TrendID      int64
	TrendRows    int
	Flushes      int
	LostTicks    int
	TrendClosed  bool
	// Faults counts every fault written to the error log, including the
	// supervisor's own status read faults.
	Faults int64
}

func (s Summary) String() string {
	return fmt.Sprintf("processed %d spectra / %d trend rows", s.Spectra, s.TrendRows)
}
