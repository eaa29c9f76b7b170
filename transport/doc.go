// Package transport is the network boundary consumed by the query engine.
//
// A Doer either returns a *Response (any status) or a *NetworkError when no
// response exists. The engine switches on that distinction instead of
// inspecting error values, and only reads a body when a response exists.
// Response bodies are read lazily and at most once.
package transport
