// Package server implements the network side of bandstand: the accept
// loop, per-connection request handling, the bounded command worker pool,
// the operator console, database health monitoring and metrics.
//
// # Connection lifecycle
//
// Every connection carries exactly one request:
//
//	accepted -> reading request -> dispatching -> writing response -> closed
//
// A connection whose request cannot be decoded is logged and closed without
// a response. Panics are recovered per connection.
//
// # Concurrency
//
// Serve runs three goroutines that meet in one select loop: the acceptor
// delivers connections, the console reader delivers operator lines and the
// loop itself watches the context. Each connection is handled in its own
// goroutine; the command it carries runs only after acquiring one of
// Config.Workers slots of a semaphore.
//
// # Shutdown
//
// Cancelling the context given to Serve closes the listener, waits up to
// Config.ShutdownGrace for open connections, force-closes the rest and
// drains the worker pool.
package server
