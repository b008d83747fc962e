// Package logging assembles structured slog loggers and attribute helpers used
// across reactir.
//
// It owns the console and JSON handlers, parses level strings, fans output to
// stdout plus an optional run log file, and defines the standard field keys
// (run, document, trend, loop) so every component emits the same shape. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
