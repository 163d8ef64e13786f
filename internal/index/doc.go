// Package index holds the in-memory location index.
//
// A Builder flattens every source into (location, cell) pairs and merges
// them into an immutable Snapshot keyed by normalized item name. An Index
// publishes one Snapshot at a time through an atomic pointer, so readers
// never see a partially built table and never take a lock.
package index
