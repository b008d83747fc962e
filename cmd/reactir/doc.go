// Package main hosts the reactir CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, then either runs an
// acquisition session against the instrument (`reactir run`) or reads back
// what earlier sessions recorded (`reactir runs`, `reactir trends`).
// Acquisition logic lives in internal/supervisor and internal/acquisition;
// commands here only wire collaborators together and render results.
package main
