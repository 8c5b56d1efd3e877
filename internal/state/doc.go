// Package state exposes the engine's three durable entities — the dedup
// store, the cooldown gate and the recipient registry — as typed
// single-writer abstractions over storage.Store.
package state
