// Package protocol defines what travels between the bandstand client and
// server: one Request from the client, one Response from the server, then the
// connection is closed.
//
// # Wire format
//
// Each direction carries exactly one gob-encoded envelope holding the schema
// Version and the message. There is no framing beyond gob's own type and
// length markers. A peer that reads an envelope with a different Version
// rejects it with ErrVersion instead of guessing at the layout.
//
// # Commands
//
// Catalog is the fixed command set. Both sides use it: the client to reject
// argument arity mistakes before touching the network, the server to build
// its registry and to render help. A Spec says whether a command takes an
// integer argument (ids, indexes), a string argument (script paths) or none,
// and whether the request carries a band.
//
// # Failures
//
// Most outcomes are plain result text. Authentication outcomes are tagged
// (TagAuthFailed, TagLoginTaken) so the client can branch on them, for example
// to offer registration after a failed login.
package protocol
