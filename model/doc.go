// Package model defines the records that flow out of a graphdig search.
//
// # Records
//
//   - MatchRecord: one (key, value) pair that satisfied the search term
//   - PropertyRecord: one own property returned by an expansion
//
// # Streaming
//
//   - Batch: one unit of streamed output, partial or terminal
//   - TerminalReason: why a run ended (Completed, Cancelled, BudgetExhausted)
//   - ResultSet: consumer-side view that places batches by offset so a
//     replayed batch never duplicates a match
package model
