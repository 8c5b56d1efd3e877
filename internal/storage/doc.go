// Package storage persists the broadcast engine's durable state: the
// recipient set, the last-broadcast timestamp and the sent-title history.
//
// Two drivers:
//   - "file": dependency-free JSON files with atomic rename writes
//   - "sqlite": SQLite database file (build with -tags sqlite)
//
// A missing file or empty database is a first run, never an error. All
// three records are owned by a single process; the store serializes its
// own writers.
package storage
