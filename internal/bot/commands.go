package bot

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"newsbot/pkg/logx"
)

const handlerTimeout = 30 * time.Second

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

const welcomeText = "✅ <b>News Bot Activated!</b>\n\n" +
	"\U0001f514 I will automatically broadcast the latest crypto news to this group.\n" +
	"⏰ Maximum one news per hour.\n\n" +
	"\U0001f4ca <b>Admin Commands:</b>\n" +
	"• /status - View bot status\n" +
	"• /news - Get latest news manually\n" +
	"• /stop - Stop receiving news\n\n" +
	"\U0001f4a1 <i>Only group admins can use these commands</i>"

func (b *Bot) handleStart(c tele.Context) error {
	chat := c.Chat()
	if !isGroup(chat) {
		return c.Send(
			"\U0001f44b <b>Welcome to News Bot!</b>\n\n"+
				"Add me to a group and I will automatically broadcast crypto news.\n\n"+
				"\U0001f517 Just add me to your group - no setup needed!",
			tele.ModeHTML,
		)
	}

	ctx, cancel := handlerContext()
	defer cancel()
	if err := b.registry.Add(ctx, chat.ID); err != nil {
		b.log.Error("register failed", logx.Int64("chat_id", chat.ID), logx.Err(err))
		return c.Send("❌ Registration failed, please try again later.")
	}
	return c.Send(welcomeText, tele.ModeHTML)
}

func (b *Bot) handleStop(c tele.Context) error {
	chat := c.Chat()
	if !isGroup(chat) {
		return nil
	}

	ctx, cancel := handlerContext()
	defer cancel()
	if err := b.registry.Remove(ctx, chat.ID); err != nil {
		b.log.Error("unregister failed", logx.Int64("chat_id", chat.ID), logx.Err(err))
		return c.Send("❌ Something went wrong, please try again later.")
	}
	return c.Send("\U0001f6d1 <b>News broadcast stopped</b>\n\nSend /start to reactivate", tele.ModeHTML)
}

func (b *Bot) handleStatus(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	all, err := b.registry.All(ctx)
	if err != nil {
		b.log.Error("status read failed", logx.Err(err))
		return c.Send("❌ Status unavailable right now.")
	}
	remaining, err := b.gate.Remaining(ctx)
	if err != nil {
		b.log.Error("status read failed", logx.Err(err))
		return c.Send("❌ Status unavailable right now.")
	}

	registered := false
	if chat := c.Chat(); isGroup(chat) {
		registered, _ = b.registry.Contains(ctx, chat.ID)
	}
	state := "Not Registered"
	if registered {
		state = "Registered"
	}

	text := fmt.Sprintf(
		"\U0001f4ca <b>News Bot Status</b>\n\n"+
			"━━━━━━━━━\n"+
			"\U0001f4e1 Registered Groups: <b>%d</b>\n"+
			"⏰ Broadcast Interval: <b>%s</b>\n"+
			"⏳ Next Broadcast In: <b>%dm %ds</b>\n"+
			"✅ This Group: <b>%s</b>\n"+
			"━━━━━━━━━",
		len(all),
		b.gate.Interval(),
		int(remaining.Minutes()),
		int(remaining.Seconds())%60,
		state,
	)
	return c.Send(text, tele.ModeHTML)
}

// handleNews fetches on demand and shows the top item of the merged list
// to the requesting chat only. It deliberately bypasses cooldown and
// dedup, and must never mutate them.
func (b *Bot) handleNews(c tele.Context) error {
	if err := c.Send("\U0001f504 Fetching latest news..."); err != nil {
		return err
	}

	ctx, cancel := handlerContext()
	defer cancel()

	items := b.fetch.FetchAll(ctx)
	if len(items) == 0 {
		return c.Send("❌ Unable to fetch news. Please try again later.")
	}
	item := items[0]

	caption := b.render(item)
	markup := b.keyboard()

	if item.ImageURL != "" {
		photo := &tele.Photo{File: tele.FromURL(item.ImageURL), Caption: string(caption)}
		if err := c.Send(photo, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup}); err == nil {
			return nil
		} else {
			b.log.Warn("image send failed, falling back to text", logx.Err(err))
		}
	}
	return c.Send(string(caption), &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup})
}

func (b *Bot) handleMembership(c tele.Context) error {
	upd := c.ChatMember()
	if upd == nil || upd.Chat == nil || upd.NewChatMember == nil {
		return nil
	}
	chat := upd.Chat
	if !isGroup(chat) {
		return nil
	}

	ctx, cancel := handlerContext()
	defer cancel()

	switch upd.NewChatMember.Role {
	case tele.Member, tele.Administrator:
		if err := b.registry.Add(ctx, chat.ID); err != nil {
			b.log.Error("auto-register failed", logx.Int64("chat_id", chat.ID), logx.Err(err))
			return nil
		}
		b.log.Info("added to group", logx.Int64("chat_id", chat.ID), logx.String("title", chat.Title))
		// Best-effort welcome; the registration already succeeded.
		if err := c.Send(welcomeText, tele.ModeHTML); err != nil {
			b.log.Warn("welcome message failed", logx.Int64("chat_id", chat.ID), logx.Err(err))
		}
	case tele.Left, tele.Kicked:
		if err := b.registry.Remove(ctx, chat.ID); err != nil {
			b.log.Error("auto-unregister failed", logx.Int64("chat_id", chat.ID), logx.Err(err))
			return nil
		}
		b.log.Info("removed from group", logx.Int64("chat_id", chat.ID), logx.String("title", chat.Title))
	}
	return nil
}
