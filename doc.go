// Package gateway provides the public API surface for a spec-authoring
// platform: authenticated, rate-limited request handling and webhook event
// delivery to tenant-registered HTTPS endpoints.
//
// Gateway is a library, not a service. Import it, give it a store, and mount
// its handler:
//
//	g, err := gateway.New(
//	    gateway.WithStore(memoryStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g.Start(ctx)
//	defer g.Stop(ctx)
//
//	http.ListenAndServe(":8080", g.Handler())
//
// Every inbound request passes the gate: bearer authentication against
// issued API keys, exact-match CORS validation against the key's origin
// allow-list, then per-key sliding-minute-window rate limiting. Responses use
// a uniform {data, meta} / {error} envelope with a fixed error taxonomy.
//
// Domain events published through the gateway fan out to each tenant's
// matching, active webhook subscriptions as HMAC-SHA256-signed POSTs with
// optional payload-field filtering. Each subscription keeps a rolling
// last-delivery summary; the full history is an append-only delivery log.
// There is no automatic retry; a manual test trigger re-sends on demand.
//
// The same push-with-status shape drives repository synchronization: a
// tenant's generated artifact is written to an external content host with
// optimistic-concurrency conflict detection, reporting idle, syncing, synced
// or error states.
package gateway
