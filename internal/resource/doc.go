// Package resource governs how much traversal work runs at once.
//
// The Controller manages two resource types:
//
//   - Runs: a weighted semaphore caps the number of concurrently active
//     search or explore runs
//   - Batches: a token bucket paces batch execution so a host sharing its
//     execution context with the traversal keeps breathing room
//
// # Run Admission
//
//	rc := resource.NewController(resource.Config{MaxRuns: 4})
//
//	if err := rc.AcquireRun(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseRun()
//
// # Batch Pacing
//
//	rc := resource.NewController(resource.Config{BatchesPerSecond: 200})
//
//	if err := rc.WaitBatch(ctx); err != nil {
//	    return err // context cancelled
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully: they become no-ops.
// This allows optional limiting without nil checks everywhere.
package resource
