// Package cache provides the expiring key-value store behind query results.
//
// Entries carry an absolute expiry. Reads evict expired entries lazily; an
// optional sweep can reclaim memory for keys that are never read again.
// Stores are constructed explicitly and injected into the query engine, so
// each test or composition root owns an isolated instance.
package cache
