// Command showrenamerd runs the rename daemon: watching directories,
// stabilizing and identifying arriving episode files, and applying renames.
package main
