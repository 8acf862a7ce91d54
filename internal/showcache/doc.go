// Package showcache persists a local JSON-backed cache of series lookups so
// repeated files for the same show skip the metadata API. Entries expire
// after a configurable TTL.
package showcache
