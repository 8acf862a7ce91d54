// Package fileutil provides safe file copy and move helpers.
//
// Moves prefer an atomic rename and fall back to a hash-verified copy plus
// removal when source and destination live on different filesystems.
package fileutil
