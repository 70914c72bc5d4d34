// Package client implements the bandstand client: a Session that delivers
// requests with fixed-delay reconnection, the interactive Shell on top of
// it, a local guard against self-recursive scripts and a bbolt-backed
// command history.
//
// Every request opens its own connection; there is no persistent session
// on the wire. The shell sends the user's credentials with each request.
package client
