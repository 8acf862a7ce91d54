// Package stability promotes watched files to processable once their size
// and modification time stop changing for a configured quiet period.
package stability
