// Package preflight checks that TreasureBot can run before it starts:
// sources are configured and reachable, credentials look right, chat
// platforms have what they need and the data directory is usable.
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight
