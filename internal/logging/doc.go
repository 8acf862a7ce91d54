// Package logging builds slog loggers with console and JSON handlers plus
// shared attribute helpers.
//
// The console handler prints compact single-line records with optional ANSI
// color when attached to a terminal; the JSON handler emits machine-readable
// records with normalized ts/level/msg keys. Component loggers carry a
// standardized component attribute so log lines from different pipeline
// stages stay distinguishable in one combined stream.
package logging
