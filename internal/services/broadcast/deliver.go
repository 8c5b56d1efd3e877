package broadcast

import (
	"context"

	"newsbot/internal/feed"
	"newsbot/pkg/logx"
)

// deliverAll fans the item out to every target. A recipient counts as
// failed only when both the image and the text attempt fail; one bad
// recipient never stops the others. Pacing comes from the service limiter.
func (s *Service) deliverAll(ctx context.Context, targets []int64, item feed.Item) (delivered int, failed []int64) {
	for _, chatID := range targets {
		if err := s.limiter.Wait(ctx); err != nil {
			// Shutdown mid-fan-out: leave the untried recipients alone,
			// they did not fail.
			s.log.Warn("delivery fan-out interrupted", logx.Err(err))
			return delivered, failed
		}
		if s.sendOne(ctx, chatID, item) {
			delivered++
		} else {
			failed = append(failed, chatID)
		}
	}
	return delivered, failed
}

// sendOne tries an image-attached delivery first when the item has one,
// then falls back to text-only for the same recipient.
func (s *Service) sendOne(ctx context.Context, chatID int64, item feed.Item) bool {
	if item.ImageURL != "" {
		if err := s.attempt(ctx, chatID, item, true); err == nil {
			return true
		} else {
			s.log.Warn("image send failed, falling back to text",
				logx.Int64("chat_id", chatID), logx.Err(err))
		}
	}
	if err := s.attempt(ctx, chatID, item, false); err != nil {
		s.log.Error("delivery failed", logx.Int64("chat_id", chatID), logx.Err(err))
		return false
	}
	return true
}

func (s *Service) attempt(ctx context.Context, chatID int64, item feed.Item, withImage bool) error {
	actx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	if withImage {
		return s.deliver.DeliverWithImage(actx, chatID, item)
	}
	return s.deliver.DeliverText(actx, chatID, item)
}
