package instrument

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// ErrEmptySpectrum is returned when the instrument reports a spectrum with no points.
var ErrEmptySpectrum = errors.New("spectrum is empty")

// FaultKind classifies a failed read.
type FaultKind string

const (
	// FaultTransient marks an attribute that is temporarily unreadable.
	FaultTransient FaultKind = "transient"
	// FaultUnexpected marks any other read failure.
	FaultUnexpected FaultKind = "unexpected"
)

// Fault wraps a read failure with its address and classification.
type Fault struct {
	Kind    FaultKind
	Address string
	Err     error
}

func (f *Fault) Error() string {
	if f.Address == "" {
		return fmt.Sprintf("%s fault: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s fault reading %s: %v", f.Kind, f.Address, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Transient builds a transient fault for addr.
func Transient(addr string, err error) *Fault {
	return &Fault{Kind: FaultTransient, Address: addr, Err: err}
}

// Unexpected builds an unexpected fault for addr.
func Unexpected(addr string, err error) *Fault {
	return &Fault{Kind: FaultUnexpected, Address: addr, Err: err}
}

// IsTransient reports whether err is, or wraps, a transient Fault.
func IsTransient(err error) bool {
	var fault *Fault
	return errors.As(err, &fault) && fault.Kind == FaultTransient
}

// KindOf returns the fault kind of err, treating unclassified errors as unexpected.
func KindOf(err error) FaultKind {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Kind
	}
	return FaultUnexpected
}

// Classify turns a read error into a Skip outcome carrying a Fault. Errors
// that are already faults keep their kind.
func Classify(addr string, err error) Outcome {
	if err == nil {
		return Skip(Unexpected(addr, errors.New("unknown read failure")))
	}
	var fault *Fault
	if errors.As(err, &fault) {
		return Skip(err)
	}
	return Skip(Unexpected(addr, err))
}

var fold = cases.Fold()

// StatusIs compares an instrument status string to want, ignoring case and
// surrounding whitespace.
func StatusIs(status, want string) bool {
	return fold.String(strings.TrimSpace(status)) == fold.String(want)
}
