package acquisition

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"reactir/internal/config"
	"reactir/internal/instrument"
	"reactir/internal/spectrum"
	"reactir/internal/store"
	"reactir/internal/testsupport"
)

func scriptRaw(h *harness, statuses []testsupport.Step, intervalMS any) {
	inst := h.cfg.Instrument
	h.link.Script(inst.StatusNode, statuses...)
	h.link.Set(inst.RawSpectrumNode, testsupport.Spectrum(8, 40))
	if intervalMS != nil {
		h.link.Set(inst.SamplingIntervalNode, intervalMS)
	}
}

func sidecarCount(t *testing.T, dir, prefix string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("read spectra dir: %v", err)
	}
	n := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".csv") {
			n++
		}
	}
	return n
}

func TestRawProducesOneSpectrumPerRunningRead(t *testing.T) {
	for _, k := range []int{1, 3, 5} {
		h := newHarness(t)
		steps := append(repeat("Running", k), testsupport.Val("Stopped"))
		scriptRaw(h, steps, 1000.0)

		loop := h.rawLoop(nil)
		sleeps := &sleepLog{signal: h.signal}
		loop.sleep = sleeps.sleep

		res := loop.Run(context.Background())
		if res.Fatal != nil {
			t.Fatalf("k=%d: unexpected fatal %v", k, res.Fatal)
		}
		if res.Spectra != k {
			t.Fatalf("k=%d: expected %d spectra, got %d", k, k, res.Spectra)
		}
		if got := sidecarCount(t, h.cfg.Paths.SpectraDir, spectrum.RawPrefix); got != k {
			t.Fatalf("k=%d: expected %d sidecars, got %d", k, k, got)
		}
		count, err := h.store.CountSpectra(context.Background(), h.run.DocumentID)
		if err != nil || count != int64(k) {
			t.Fatalf("k=%d: expected %d spectra rows, got %d (%v)", k, k, count, err)
		}
		if reads := h.link.Reads(h.cfg.Instrument.StatusNode); reads != k+1 {
			t.Fatalf("k=%d: expected %d status reads, got %d", k, k+1, reads)
		}
		if res.State != StateStopped || loop.State() != StateStopped {
			t.Fatalf("k=%d: expected stopped state, got %s", k, res.State)
		}
		if !res.RunEnded {
			t.Fatalf("k=%d: expected the run end to be reported", k)
		}
	}
}

func TestRawIdleIdleRunningRunningStopped(t *testing.T) {
	h := newHarness(t)
	poll := h.cfg.Acquisition.StatusPollInterval.Std()
	scriptRaw(h, []testsupport.Step{
		testsupport.Val("idle"),
		testsupport.Val("idle"),
		testsupport.Val("running"),
		testsupport.Val("running"),
		testsupport.Val("stopped"),
	}, 2000.0)

	loop := h.rawLoop(nil)
	sleeps := &sleepLog{signal: h.signal}
	loop.sleep = sleeps.sleep

	res := loop.Run(context.Background())
	if res.Spectra != 2 {
		t.Fatalf("expected 2 spectra, got %d", res.Spectra)
	}
	if reads := h.link.Reads(h.cfg.Instrument.StatusNode); reads != 5 {
		t.Fatalf("expected the loop to stop on status read 5, got %d reads", reads)
	}
	want := []time.Duration{poll, poll, 2 * time.Second, 2 * time.Second}
	got := sleeps.all()
	if len(got) != len(want) {
		t.Fatalf("unexpected sleeps %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sleep %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRawFallsBackToDefaultDelay(t *testing.T) {
	h := newHarness(t)
	h.cfg.Acquisition.DefaultDelay = config.Duration(750 * time.Millisecond)
	scriptRaw(h, append(repeat("running", 3), testsupport.Val("stopped")), nil)
	h.link.Script(h.cfg.Instrument.SamplingIntervalNode, testsupport.Fail(errors.New("BadAttributeIdInvalid")))

	loop := h.rawLoop(nil)
	sleeps := &sleepLog{signal: h.signal}
	loop.sleep = sleeps.sleep

	res := loop.Run(context.Background())
	if res.Spectra != 3 {
		t.Fatalf("expected 3 spectra at the default cadence, got %d", res.Spectra)
	}
	for i, d := range sleeps.all() {
		if d != 750*time.Millisecond {
			t.Fatalf("sleep %d = %s, want default delay", i, d)
		}
	}
	if res.Faults != 1 || h.sink.Count() != 1 {
		t.Fatalf("expected the unreadable interval to be recorded once, got faults=%d sink=%d", res.Faults, h.sink.Count())
	}
}

func TestRawNonPositiveIntervalUsesDefault(t *testing.T) {
	h := newHarness(t)
	scriptRaw(h, append(repeat("running", 1), testsupport.Val("stopped")), 0.0)
	loop := h.rawLoop(nil)
	if got := loop.samplingInterval(context.Background(), &RawResult{}); got != h.cfg.Acquisition.DefaultDelay.Std() {
		t.Fatalf("expected default delay, got %s", got)
	}
	h.link.Set(h.cfg.Instrument.SamplingIntervalNode, int32(1500))
	if got := loop.samplingInterval(context.Background(), &RawResult{}); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %s", got)
	}
}

func TestRawEmptyFirstSpectrumIsFatal(t *testing.T) {
	h := newHarness(t)
	scriptRaw(h, repeat("running", 1), 1000.0)
	h.link.Set(h.cfg.Instrument.RawSpectrumNode, []float64{})

	loop := h.rawLoop(nil)
	loop.sleep = (&sleepLog{signal: h.signal}).sleep

	res := loop.Run(context.Background())
	if !errors.Is(res.Fatal, instrument.ErrEmptySpectrum) {
		t.Fatalf("expected empty spectrum fatal, got %v", res.Fatal)
	}
	if res.Spectra != 0 || res.State != StateStopped {
		t.Fatalf("unexpected result %+v", res)
	}
	if sidecarCount(t, h.cfg.Paths.SpectraDir, spectrum.RawPrefix) != 0 {
		t.Fatal("expected no sidecar for an aborted loop")
	}
}

func TestRawTransientFaultSkipsOnlyThatTick(t *testing.T) {
	h := newHarness(t)
	scriptRaw(h, append(repeat("running", 4), testsupport.Val("stopped")), 1000.0)
	values := testsupport.Spectrum(8, 40)
	h.link.Script(h.cfg.Instrument.RawSpectrumNode,
		testsupport.Val(values),
		testsupport.Fail(errors.New("BadNotReadable")),
		testsupport.Val(values),
		testsupport.Val(values),
	)

	loop := h.rawLoop(nil)
	loop.sleep = (&sleepLog{signal: h.signal}).sleep

	res := loop.Run(context.Background())
	if res.Spectra != 3 || res.Faults != 1 {
		t.Fatalf("expected 3 spectra and 1 fault, got %+v", res)
	}
	if res.Fatal != nil {
		t.Fatalf("fault should not stop the loop: %v", res.Fatal)
	}
}

func TestRawLengthChangeIsSkipped(t *testing.T) {
	h := newHarness(t)
	scriptRaw(h, append(repeat("running", 3), testsupport.Val("stopped")), 1000.0)
	h.link.Script(h.cfg.Instrument.RawSpectrumNode,
		testsupport.Val(testsupport.Spectrum(8, 40)),
		testsupport.Val(testsupport.Spectrum(6, 40)),
		testsupport.Val(testsupport.Spectrum(8, 41)),
	)

	loop := h.rawLoop(nil)
	loop.sleep = (&sleepLog{signal: h.signal}).sleep

	res := loop.Run(context.Background())
	if res.Spectra != 2 || res.Faults != 1 {
		t.Fatalf("expected mismatched tick to be skipped, got %+v", res)
	}
	if sidecarCount(t, h.cfg.Paths.SpectraDir, spectrum.RawPrefix) != 2 {
		t.Fatal("expected no sidecar for the mismatched tick")
	}
}

func TestRawPersistenceFailureContinues(t *testing.T) {
	h := newHarness(t)
	scriptRaw(h, append(repeat("running", 3), testsupport.Val("stopped")), 1000.0)
	writer := &flakySpectrumWriter{SpectrumWriter: h.store, fail: map[int]bool{1: true}}

	loop := h.rawLoop(writer)
	loop.sleep = (&sleepLog{signal: h.signal}).sleep

	res := loop.Run(context.Background())
	if res.Spectra != 2 || res.Faults != 1 {
		t.Fatalf("expected 2 persisted spectra after one failure, got %+v", res)
	}
	count, _ := h.store.CountSpectra(context.Background(), h.run.DocumentID)
	if count != 2 {
		t.Fatalf("expected 2 spectra rows, got %d", count)
	}
}

func TestRawCancelledWhileAwaitingRun(t *testing.T) {
	h := newHarness(t)
	scriptRaw(h, repeat("idle", 1), 1000.0)
	h.link.OnRead(h.cfg.Instrument.StatusNode, func(n int) {
		if n == 3 {
			h.signal.Set()
		}
	})

	loop := h.rawLoop(nil)
	loop.sleep = (&sleepLog{signal: h.signal}).sleep

	res := loop.Run(context.Background())
	if res.Fatal != nil || res.Spectra != 0 || res.RunEnded {
		t.Fatalf("expected clean stop, got %+v", res)
	}
	if reads := h.link.Reads(h.cfg.Instrument.StatusNode); reads != 3 {
		t.Fatalf("expected 3 status reads, got %d", reads)
	}
}

func TestRawStartupFaultLimit(t *testing.T) {
	h := newHarness(t)
	h.cfg.Acquisition.MaxStartupFaults = 3
	h.link.Script(h.cfg.Instrument.StatusNode, testsupport.Fail(errors.New("BadNotConnected")))

	loop := h.rawLoop(nil)
	loop.sleep = (&sleepLog{signal: h.signal}).sleep

	res := loop.Run(context.Background())
	if res.Fatal == nil {
		t.Fatal("expected startup fault limit to abort the loop")
	}
	if res.Faults != 3 {
		t.Fatalf("expected 3 recorded faults, got %d", res.Faults)
	}
}

func TestRawStopsAfterInFlightTickOnSignal(t *testing.T) {
	h := newHarness(t)
	scriptRaw(h, repeat("running", 1), 1000.0)
	h.link.OnRead(h.cfg.Instrument.RawSpectrumNode, func(n int) {
		if n == 2 {
			h.signal.Set()
		}
	})

	loop := h.rawLoop(nil)
	loop.sleep = (&sleepLog{signal: h.signal}).sleep

	res := loop.Run(context.Background())
	if res.Spectra != 2 {
		t.Fatalf("expected the in-flight tick to complete, got %d spectra", res.Spectra)
	}
}

func TestRawRecordsTreatedSidecarAndMetadata(t *testing.T) {
	h := newHarness(t, testsupport.WithMetadata())
	inst := h.cfg.Instrument
	scriptRaw(h, append(repeat("running", 1), testsupport.Val("stopped")), 1000.0)
	h.link.Set(inst.ProbeTemperatureNode, 24.5)
	h.link.AddChild(inst.ProbeNode, "desc", "Probe Description").Set("desc", "DiComp probe")
	h.link.AddChild(inst.ProbeNode, "count", "Sample Count").Set("count", int64(7))
	h.link.AddChild(inst.ProbeNode, "treated", "Last Sample Treated Spectra").Set("treated", testsupport.Spectrum(8, 0))

	loop := h.rawLoop(nil)
	loop.sleep = (&sleepLog{signal: h.signal}).sleep

	res := loop.Run(context.Background())
	if res.Spectra != 1 || res.Faults != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	records, err := h.store.ListSpectra(context.Background(), h.run.DocumentID)
	if err != nil {
		t.Fatalf("ListSpectra: %v", err)
	}
	if len(records) != 2 || records[0].Type != store.SpectrumRaw || records[1].Type != store.SpectrumProcessed {
		t.Fatalf("expected raw and processed spectra, got %+v", records)
	}
	if records[0].SampleID != records[1].SampleID {
		t.Fatal("expected both sidecars on one sample")
	}
	axis, values, err := spectrum.ReadCSV(records[0].FilePath)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(axis) != 8 || axis[0] != h.cfg.Acquisition.WavenumberStart || axis[7] != h.cfg.Acquisition.WavenumberEnd || values[0] != 40 {
		t.Fatalf("unexpected sidecar contents %v %v", axis, values)
	}
}

func TestNextStampNeverRepeats(t *testing.T) {
	h := newHarness(t)
	loop := h.rawLoop(nil)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 500_000, time.UTC)
	loop.now = func() time.Time { return fixed }

	first := loop.nextStamp()
	second := loop.nextStamp()
	if !second.After(first) {
		t.Fatalf("expected strictly increasing stamps, got %s then %s", first, second)
	}
	if spectrum.FileName(spectrum.RawPrefix, first) == spectrum.FileName(spectrum.RawPrefix, second) {
		t.Fatal("expected distinct file names")
	}
}
