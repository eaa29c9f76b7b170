// Package auth attaches bearer credentials to outgoing requests.
//
// A TokenSource yields the current token. Sources compose: a FileToken can
// be watched for rotation, and a RefreshingToken wraps any source and
// exchanges an expired JWT for a new one through a Refresher. Transport is
// the http.RoundTripper that puts the token on the wire.
package auth
