package storage

import (
	"context"
	"time"
)

const DefaultDedupLimit = 500

// Config configures storage.
//
// Driver values:
//   - "file" (default): JSON files next to Path
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	DedupLimit  int           // max sent titles kept; 0 means DefaultDedupLimit
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the registry, cooldown gate and
// dedup store. Implementations serialize writes internally.
type Store interface {
	Recipients(ctx context.Context) ([]int64, error)
	AddRecipient(ctx context.Context, id int64) error
	RemoveRecipient(ctx context.Context, id int64) error
	HasRecipient(ctx context.Context, id int64) (bool, error)

	// LastBroadcast reports the persisted timestamp; ok is false on first
	// run (no broadcast recorded yet).
	LastBroadcast(ctx context.Context) (t time.Time, ok bool, err error)
	SetLastBroadcast(ctx context.Context, t time.Time) error

	SeenTitle(ctx context.Context, title string) (bool, error)
	// RecordTitle appends title if absent; once the history exceeds the
	// configured limit, the oldest titles are evicted first.
	RecordTitle(ctx context.Context, title string) error

	Close() error
}
