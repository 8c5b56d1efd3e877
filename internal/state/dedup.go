package state

import (
	"context"
	"strings"

	"newsbot/internal/storage"
)

// Dedup tracks which article titles have already been broadcast. The title
// is the sole dedup key; near-duplicate wording from different sources is
// intentionally not collapsed.
type Dedup struct {
	db storage.Store
}

func NewDedup(db storage.Store) *Dedup { return &Dedup{db: db} }

func (d *Dedup) Seen(ctx context.Context, title string) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, nil
	}
	return d.db.SeenTitle(ctx, title)
}

func (d *Dedup) Record(ctx context.Context, title string) error {
	return d.db.RecordTitle(ctx, title)
}
