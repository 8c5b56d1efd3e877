package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"newsbot/internal/feed"
)

// DeliverWithImage sends the article as a photo with an HTML caption and
// the call-to-action keyboard.
func (b *Bot) DeliverWithImage(ctx context.Context, chatID int64, item feed.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := &tele.Photo{File: tele.FromURL(item.ImageURL), Caption: string(b.render(item))}
	_, err := b.tb.Send(tele.ChatID(chatID), photo, &tele.SendOptions{
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: b.keyboard(),
	})
	return err
}

// DeliverText sends the article as a plain HTML message, link preview
// enabled.
func (b *Bot) DeliverText(ctx context.Context, chatID int64, item feed.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.tb.Send(tele.ChatID(chatID), string(b.render(item)), &tele.SendOptions{
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: b.keyboard(),
	})
	return err
}
