// Package pagination implements cursor-driven collection for paginated
// Helix resources.
//
// Helix paginates with opaque cursors: each page's pagination.cursor value
// is passed back as the "after" parameter of the next request, and the
// final page simply omits it. The Collector follows that chain through a
// PageFetcher (implemented by the client package) and accumulates the raw
// records, optionally stopping early once a record cap is reached.
//
// Usage:
//
//	collector := pagination.NewCollector(helixClient, logger)
//	result, err := collector.Collect(ctx, "clips", params, 100, 250)
//
// Cursors are ephemeral: nothing is persisted between sessions, and a
// collection interrupted mid-way starts over from the first page.
package pagination
