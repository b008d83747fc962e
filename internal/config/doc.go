// Package config loads, normalizes, and validates reactir configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REACTIR_ENDPOINT. The Config type replaces ad hoc globals: one value is
// built at startup and passed by reference to the supervisor, both polling
// loops, and the persistence gateway.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical durations, and clear validation errors.
package config
