package observe

// Operation kinds.
const (
	KindQuery    = "query"
	KindMutation = "mutation"
)

// QueryMeta identifies an operation for telemetry purposes.
type QueryMeta struct {
	Kind   string // KindQuery or KindMutation; empty means KindQuery
	Key    string // cache key; empty for mutations
	Method string // HTTP-style method (optional)
}

// OperationKind returns the kind, defaulting to KindQuery.
func (m QueryMeta) OperationKind() string {
	if m.Kind == "" {
		return KindQuery
	}
	return m.Kind
}

// SpanName returns the deterministic span name for this operation.
// Keys are attributes, not part of the name, to keep span names low-cardinality.
func (m QueryMeta) SpanName() string {
	if m.OperationKind() == KindMutation {
		return "query.mutate"
	}
	return "query.fetch"
}
