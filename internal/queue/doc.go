// Package queue persists tracked files in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, filesystem
// observations, retry scheduling, and the status transitions the processor
// relies on. Exactly one row exists per real filesystem path; rows are
// removed on terminal transitions, so the database only ever holds files
// still in flight. The audit trail, not this database, is the long-term
// record.
//
// Schema changes bump the version in schema.go; users delete the database to
// adopt the new schema.
package queue
