// Package collection holds the in-memory collection of bands served by one
// server process.
//
// # Overview
//
// A Store is an ordered list of bands with unique ids. The order is the
// insertion order, with two exceptions: an updated band moves to the end and
// Shuffle permutes the whole list. Positions used by At and RemoveAt refer to
// this order.
//
// The store is a cache of the database. Commands change the database first
// and apply the same change here only after the database accepted it, so the
// store never holds a band the database rejected. Reload rebuilds the store
// from the database at any time.
//
// # Thread Safety
//
// Store guards its state with a sync.RWMutex. Queries run concurrently with
// each other and return copies. Mutations are serialised. Sequences such as
// "look up an index, then delete it" are not atomic at this level; the command
// layer serialises them with its own lock.
package collection
