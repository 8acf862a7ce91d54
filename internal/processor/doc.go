// Package processor coordinates the rename pipeline over the queue: parsing
// stable files, matching them to series metadata, applying rename plans, and
// scheduling retries for transient failures.
package processor
