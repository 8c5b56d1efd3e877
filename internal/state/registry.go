package state

import (
	"context"

	"newsbot/internal/storage"
	"newsbot/pkg/logx"
)

// Registry holds the set of active recipients (Telegram group chat ids).
// Bot membership events, explicit /start-/stop commands and dispatcher
// prune-on-failure all mutate through this one path; the underlying store
// serializes the writes.
type Registry struct {
	db  storage.Store
	log logx.Logger
}

func NewRegistry(db storage.Store, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{db: db, log: log}
}

// Add registers a recipient. Idempotent.
func (r *Registry) Add(ctx context.Context, id int64) error {
	if err := r.db.AddRecipient(ctx, id); err != nil {
		return err
	}
	r.log.Info("recipient registered", logx.Int64("chat_id", id))
	return nil
}

// Remove unregisters a recipient. Idempotent.
func (r *Registry) Remove(ctx context.Context, id int64) error {
	if err := r.db.RemoveRecipient(ctx, id); err != nil {
		return err
	}
	r.log.Info("recipient unregistered", logx.Int64("chat_id", id))
	return nil
}

func (r *Registry) All(ctx context.Context) ([]int64, error) {
	return r.db.Recipients(ctx)
}

func (r *Registry) Contains(ctx context.Context, id int64) (bool, error) {
	return r.db.HasRecipient(ctx, id)
}
