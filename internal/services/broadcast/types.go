package broadcast

import (
	"context"
	"time"

	"newsbot/internal/feed"
)

type Config struct {
	// SendRatePerSec paces per-recipient sends (Telegram flood control).
	// Default 10.
	SendRatePerSec int
	// SendTimeout bounds one delivery attempt. Default 30s.
	SendTimeout time.Duration
}

// Deliverer is the outbound delivery layer. Both calls return only a
// success/failure signal; rendering belongs to the implementation.
type Deliverer interface {
	DeliverWithImage(ctx context.Context, chatID int64, item feed.Item) error
	DeliverText(ctx context.Context, chatID int64, item feed.Item) error
}

// Fetcher produces the merged, priority-ordered article list. It never
// fails; sources that error contribute nothing.
type Fetcher interface {
	FetchAll(ctx context.Context) []feed.Item
}

type DedupStore interface {
	Seen(ctx context.Context, title string) (bool, error)
	Record(ctx context.Context, title string) error
}

type CooldownGate interface {
	Allowed(ctx context.Context) (bool, error)
	Remaining(ctx context.Context) (time.Duration, error)
	Mark(ctx context.Context) error
}

type RecipientSet interface {
	All(ctx context.Context) ([]int64, error)
	Remove(ctx context.Context, id int64) error
}

// Outcome names how a cycle ended.
type Outcome string

const (
	// OutcomeSkipped: another cycle was still in flight.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeBlocked: cooldown window still open. No state touched.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeNoContent: every source came back empty. Cooldown not consumed.
	OutcomeNoContent Outcome = "no_content"
	// OutcomeNothingNew: fetched fine, but every title was already seen.
	// Cooldown not consumed.
	OutcomeNothingNew Outcome = "nothing_new"
	// OutcomeDelivered: an item was selected, delivered and committed.
	OutcomeDelivered Outcome = "delivered"
)

type CycleResult struct {
	Outcome   Outcome
	Item      *feed.Item
	Delivered int
	Pruned    []int64
}
