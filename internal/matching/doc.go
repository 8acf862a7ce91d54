// Package matching resolves parsed filename candidates to series and
// episode metadata, preferring the local cache and falling back to the
// metadata API with fuzzy title scoring.
package matching
