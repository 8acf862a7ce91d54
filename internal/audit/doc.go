// Package audit keeps an append-only JSONL trail of every terminal outcome
// for processed files, backing the history and undo commands.
package audit
