// Package observe provides observability primitives for query and mutation
// execution.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The query engine calls into it around every fetch
// and cache lookup.
package observe
