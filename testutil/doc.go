// Package testutil provides graph fixtures for graphdig tests.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Graphs
//
//	rng := testutil.NewRNG(seed)
//	g := rng.Graph(500, 4)          // 500 nodes, up to 4 edges each, cycles included
//
// # Shaped Graphs
//
//	testutil.Chain(10)   // root.next.next...
//	testutil.Fan(200)    // one node with 200 children
//	testutil.Ring(3)     // a -> b -> c -> a
//
// # Stepping Runs
//
//	exec := &testutil.ManualExecutor{}
//	// pass exec as the run executor, then
//	exec.Drain()
package testutil
