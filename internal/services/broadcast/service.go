package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"newsbot/internal/feed"
	"newsbot/pkg/logx"
)

type Service struct {
	cfg Config
	log logx.Logger

	fetch      Fetcher
	dedup      DedupStore
	gate       CooldownGate
	recipients RecipientSet
	deliver    Deliverer

	limiter *rate.Limiter

	// inFlight serializes cycles: the external trigger fires more often
	// than a slow cycle can finish, and overlapping cycles would race on
	// the shared stores.
	inFlight atomic.Bool
}

func New(cfg Config, fetch Fetcher, dedup DedupStore, gate CooldownGate, recipients RecipientSet, deliver Deliverer, log logx.Logger) *Service {
	rps := cfg.SendRatePerSec
	if rps <= 0 {
		rps = 10
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:        cfg,
		log:        log,
		fetch:      fetch,
		dedup:      dedup,
		gate:       gate,
		recipients: recipients,
		deliver:    deliver,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// RunCycle executes one end-to-end broadcast cycle. Per-source and
// per-recipient failures are tolerated; only a persistence failure while
// committing the outcome is returned as an error.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Debug("cycle skipped: previous cycle still running")
		return CycleResult{Outcome: OutcomeSkipped}, nil
	}
	defer s.inFlight.Store(false)

	allowed, err := s.gate.Allowed(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("cooldown read: %w", err)
	}
	if !allowed {
		if rem, err := s.gate.Remaining(ctx); err == nil {
			s.log.Debug("broadcast cooldown active", logx.Duration("remaining", rem))
		}
		return CycleResult{Outcome: OutcomeBlocked}, nil
	}

	items := s.fetch.FetchAll(ctx)
	if len(items) == 0 {
		s.log.Warn("no articles fetched from any source")
		return CycleResult{Outcome: OutcomeNoContent}, nil
	}

	item, err := s.selectUnseen(ctx, items)
	if err != nil {
		return CycleResult{}, fmt.Errorf("dedup read: %w", err)
	}
	if item == nil {
		s.log.Info("no unseen articles", logx.Int("fetched", len(items)))
		return CycleResult{Outcome: OutcomeNothingNew}, nil
	}

	targets, err := s.recipients.All(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("recipient read: %w", err)
	}

	delivered, failed := s.deliverAll(ctx, targets, *item)

	if err := s.finalize(ctx, *item, failed); err != nil {
		return CycleResult{}, err
	}

	s.log.Info("broadcast complete",
		logx.String("title", item.Title),
		logx.String("source", item.Source),
		logx.Int("delivered", delivered),
		logx.Int("pruned", len(failed)),
	)
	return CycleResult{Outcome: OutcomeDelivered, Item: item, Delivered: delivered, Pruned: failed}, nil
}

// selectUnseen returns the first item of the priority-ordered list whose
// title is not in the dedup store, or nil when everything was seen.
func (s *Service) selectUnseen(ctx context.Context, items []feed.Item) (*feed.Item, error) {
	for i := range items {
		seen, err := s.dedup.Seen(ctx, items[i].Title)
		if err != nil {
			return nil, err
		}
		if !seen {
			return &items[i], nil
		}
	}
	return nil, nil
}

// finalize commits the cycle outcome: prune unreachable recipients, mark
// the title as sent, stamp the cooldown. The three mutations are one
// logical transaction; any failure aborts the cycle with an error before
// it can be reported as a success. The title is recorded before the
// timestamp so a partial commit cannot cause the same item to be sent
// twice.
func (s *Service) finalize(ctx context.Context, item feed.Item, failed []int64) error {
	// Delivery already happened; a cancelled trigger context must not stop
	// the commit.
	cctx := context.WithoutCancel(ctx)

	for _, id := range failed {
		if err := s.recipients.Remove(cctx, id); err != nil {
			return fmt.Errorf("prune recipient %d: %w", id, err)
		}
	}
	if err := s.dedup.Record(cctx, item.Title); err != nil {
		return fmt.Errorf("record title: %w", err)
	}
	if err := s.gate.Mark(cctx); err != nil {
		return fmt.Errorf("mark cooldown: %w", err)
	}
	return nil
}
