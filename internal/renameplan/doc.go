// Package renameplan computes deterministic rename plans from confirmed
// matches and applies them under the configured operation mode.
package renameplan
