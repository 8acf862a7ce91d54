// Package services defines the shared error taxonomy for the processing
// pipeline.
//
// Every failure a component reports is tagged with one of the sentinel
// markers so the processor can route it: transient kinds (lookup, execution)
// feed the retry scheduler, terminal kinds (unparsable, no-match, collision)
// end tracking after an audit record. Wrap attaches component and operation
// context so audit reasons stay readable without stack traces.
package services
