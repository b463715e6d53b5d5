// Package logging assembles the structured slog loggers and formatting
// helpers used across slate.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so step code automatically tags log lines
// with run and step identifiers. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
