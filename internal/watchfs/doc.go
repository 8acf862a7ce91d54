// Package watchfs monitors watch directories for arriving video files using
// filesystem notifications, with a walk-based sweep for files already on
// disk at startup.
package watchfs
