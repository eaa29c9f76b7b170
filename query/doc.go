// Package query runs fetch operations against an expiring store and keeps
// per-subscription state current for the life of each subscription.
//
// An Engine owns a cache.Store and an optional visibility.Signal. Each call
// to Subscribe starts a load: cache-eligible reads are served from a fresh
// store entry without invoking the fetch operation; everything else runs
// the operation and, for reads, writes the result back to the store.
// Regaining visibility forces a cache-bypassing refetch of every live
// subscription that opted in.
//
// Mutation is the write-side counterpart. It never touches the store.
//
// Failures never escape as panics or returned errors from a load. They are
// normalized to *FetchError and surfaced through State.
//
// # Ordering
//
// Each load bumps the subscription's generation. A completion that belongs
// to an older generation is discarded, so a slow superseded fetch can never
// overwrite a newer result.
package query
