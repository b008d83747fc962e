// Package acquisition runs the two polling loops of an acquisition session.
//
// RawLoop waits for the instrument to report "running", then captures one
// spectrum per tick at the instrument's sampling interval, writing a CSV
// sidecar before referencing it in the store. TrendLoop samples probe
// temperature and tracked peaks at a fixed cadence and commits them in
// batches, draining its buffer before it closes the trend.
//
// Both loops share one instrument link, one store, one error sink, and one
// cancellation signal. Faults inside a tick are recorded and skipped; a loop
// only stops early on a loop-fatal fault, which is reported in its result
// rather than returned as an error.
package acquisition
