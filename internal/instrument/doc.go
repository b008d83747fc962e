// Package instrument models the live connection to the IR instrument.
//
// Link and Node expose read-by-address, child enumeration, and display names
// over a node-addressed automation interface. Reads never panic or raise:
// they return an Outcome that is Ok, Skip (a recoverable fault for this read),
// or Fatal. Faults carry a Kind so callers can tell a momentarily unreadable
// attribute from an unexpected failure.
//
// The OPC UA adapter in opcua.go is the production Link; tests use the
// scripted fake in internal/testsupport.
package instrument
