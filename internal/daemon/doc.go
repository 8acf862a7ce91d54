// Package daemon wires the directory watcher, stability tracker, processor,
// and retry scheduler into a single supervised lifecycle with flock-based
// single-instance enforcement.
package daemon
