// Package lock implements a quorum lock over independent backing stores,
// following the Redlock algorithm. A lock is held when a majority of stores
// accepted the same freshly generated token for a resource; the lock's
// guaranteed validity is the requested TTL minus the acquisition latency and a
// clock drift allowance. No single store is authoritative, so the lock
// survives the loss of a minority of stores.
package lock
