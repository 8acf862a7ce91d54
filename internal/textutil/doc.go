// Package textutil provides text processing utilities for fingerprinting,
// similarity, and filename sanitization.
//
// Fingerprints are term-frequency vectors over lowercase alphanumeric tokens;
// cosine similarity between them gives an order- and punctuation-insensitive
// score in [0,1] used for fuzzy series-title matching. SanitizeFileName keeps
// resolved episode titles safe as filesystem names.
package textutil
