// Package supervisor owns one acquisition session: it records the run,
// starts the raw spectrum and trend loops, watches the instrument's run
// status, and stops both loops once the experiment ends.
//
// A session ends in one of three ways:
//   - the instrument reports running and then stops, after which the
//     supervisor waits the configured grace delay and sets the stop signal
//   - the caller cancels the context (operator interrupt), which sets the
//     signal immediately
//   - both loops exit on their own, for example after a fatal startup fault
//
// Run always waits for both loops before closing the instrument link, so the
// trend's final flush and close happen before the session returns.
package supervisor
