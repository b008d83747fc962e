// Package store persists acquisition runs in SQLite.
//
// The schema has three layers. Dimension rows (Users, Projects, Experiments,
// Documents) are get-or-create by unique name. Trends and their sample rows
// are written by the trend loop. Probes, Samples, and Spectra form the
// provenance chain for every raw spectrum sidecar. Every write runs in its
// own transaction and a single pooled connection serializes writers, so the
// two acquisition loops can share one Store.
//
// Timestamps are stored as fixed-width UTC text so they sort lexically.
package store
