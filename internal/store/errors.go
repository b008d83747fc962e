package store

import "errors"

var (
	// ErrTrendClosed is returned when closing a trend whose EndTime is already set.
	ErrTrendClosed = errors.New("trend already closed")
	// ErrTrendNotFound is returned when a trend ID does not exist.
	ErrTrendNotFound = errors.New("trend not found")
	// ErrTrendOpen is returned when a document already has an open trend.
	ErrTrendOpen = errors.New("document already has an open trend")
	// ErrSidecarMissing is returned when a spectrum row would reference a
	// sidecar file that is absent or empty.
	ErrSidecarMissing = errors.New("spectrum sidecar missing or empty")
	// ErrWriterLocked is returned when another process holds the writer lock.
	ErrWriterLocked = errors.New("another reactir writer holds the database lock")
)
