// Package graphdig searches large, cyclic, dynamically shaped object graphs
// for keys or values matching a term, and lazily expands the nodes it finds.
//
// A search walks the graph breadth-first in bounded batches, so the host
// stays responsive, and streams its matches as they are found:
//
//   - Cycle safe: every node is expanded at most once per run
//   - Budgeted: result count and character ceilings per budget window
//   - Cancellable at every batch boundary, with a final batch that always arrives
//   - Back-pressure: a runaway frontier is cut to its shallowest entries
//   - Pluggable exclusion rules, with a preset for browser globals
//   - Wire-ready: batches split into chunks of 50 and framed with lz4 or zstd
//
// # Quick Start
//
//	d := graphdig.New(doc, nil)
//	defer d.Close()
//
//	s, err := d.Search(ctx, "token", graphdig.DefaultSearchOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for b, err := range s.All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, m := range b.Matches {
//	        fmt.Println(m.Path, m.Preview)
//	    }
//	}
//
// Or with the fluent builder:
//
//	rs, err := d.Query("token").Keys().MaxDepth(3).Execute(ctx)
//
// # Explore and Expand
//
// Explore runs a search rooted at a node the user opened; Expand lists one
// node's own properties:
//
//	s, _ := d.Explore(ctx, `root.users[0]`, "mail", graphdig.DefaultExploreOptions())
//	props, _ := d.Expand(ctx, `root.users[0]`, 0)
//
// # Host Graphs
//
// Plain Go values are read through reflection. Other graphs (a script
// engine's heap, a remote object model) plug in through node.Accessor.
// Hosts that mutate the graph concurrently pass WithLocker; the lock is
// held for one batch at a time.
//
// # Transport
//
// A Dispatcher maps request messages (startSearch, exploreObject,
// getObjectProperties, cancelSearch, outputFinalChunk, ping) onto a Digger
// and sends chunked responses to an Outbox.
package graphdig
