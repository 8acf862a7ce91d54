// Package parse extracts show titles and episode numbers from media
// filenames using an ordered list of configurable regular expressions.
package parse
