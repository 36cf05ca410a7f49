// Package dbpool bounds the number of datastore connections shared by all
// concurrent row processors. A Pool is created once at process start,
// injected into every component that reads or writes the tracking table and
// closed at shutdown.
//
// Leases are meant to be held for a single statement. TryAcquire never
// blocks: when every slot is taken, or when blocked Acquire callers are
// already queued for the next free slot, it returns ErrPoolExhausted.
package dbpool
