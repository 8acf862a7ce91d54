// Command showrenamer is the CLI for the episode rename pipeline: running
// the daemon in the foreground, previewing renames, and inspecting the
// queue, history, and configuration.
package main
