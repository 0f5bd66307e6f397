// Package engine implements the cooperative, budgeted breadth-first traversal
// behind search and explore.
//
// A Run owns everything it mutates: its frontier, its visited set, its budget
// counters and its result window. Two runs over the same graph share nothing
// but the read-only graph.
//
// # Scheduling
//
// A Run never loops to completion in one go. Step processes one bounded batch
// (at most Options.BatchSize dequeued nodes, or Options.BatchSlice of wall
// clock, whichever comes first) and returns. After a non-terminal step the run
// reschedules itself through its Executor, so a host that shares its execution
// context with the traversal (via Config.Locker) regains control between
// batches. Cancellation is observed only at batch boundaries.
//
// # Output
//
// Batches go to the run's Sink in production order, outside any host lock.
// Each batch carries the matches found since the previous one plus their
// offset in the run's result sequence. A cancelled run's terminal batch
// restates the whole current window so nothing already found is lost.
//
// # Termination
//
//   - frontier exhausted: Completed
//   - result or character ceiling reached: BudgetExhausted (or, with the
//     FlushAndContinue policy, a BudgetReset flush and a fresh window)
//   - cancellation observed: Cancelled
//
// A started run always ends with exactly one terminal batch; host panics
// inside a batch are recovered and end the run Completed.
package engine
