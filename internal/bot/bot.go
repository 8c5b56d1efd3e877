// Package bot is the Telegram surface: the command handlers, the
// auto-registration of groups the bot joins, and the outbound delivery
// calls the dispatcher makes.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"newsbot/internal/feed"
	"newsbot/internal/state"
	"newsbot/pkg/logx"
)

type Config struct {
	Token string
	// PollTimeout is the Telegram long-poll timeout. Default 10s.
	PollTimeout time.Duration
	TradeURL    string
	DownloadURL string
}

// Fetcher is the on-demand fetch used by /news. It mirrors the
// dispatcher's fetcher but the result never touches dedup or cooldown
// state.
type Fetcher interface {
	FetchAll(ctx context.Context) []feed.Item
}

type Bot struct {
	cfg Config
	log logx.Logger

	tb       *tele.Bot
	registry *state.Registry
	gate     *state.Cooldown
	fetch    Fetcher
}

func New(cfg Config, registry *state.Registry, gate *state.Cooldown, fetch Fetcher, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	})
	if err != nil {
		return nil, err
	}

	b := &Bot{cfg: cfg, log: log, tb: tb, registry: registry, gate: gate, fetch: fetch}
	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.adminOnly(b.handleStart))
	b.tb.Handle("/stop", b.adminOnly(b.handleStop))
	b.tb.Handle("/status", b.adminOnly(b.handleStatus))
	b.tb.Handle("/news", b.adminOnly(b.handleNews))
	b.tb.Handle(tele.OnMyChatMember, b.handleMembership)
}

// Start begins long-polling. It blocks until Stop is called, so run it on
// its own goroutine.
func (b *Bot) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.tb.Stop()
	}()
	b.log.Info("telegram polling started")
	b.tb.Start()
	b.log.Info("telegram polling stopped")
}

func (b *Bot) Stop() { b.tb.Stop() }

func isGroup(chat *tele.Chat) bool {
	return chat != nil && (chat.Type == tele.ChatGroup || chat.Type == tele.ChatSuperGroup)
}

// adminOnly gates a handler: group commands require an administrator or
// the owner; private chats are always allowed.
func (b *Bot) adminOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat, user := c.Chat(), c.Sender()
		if chat == nil || user == nil {
			return nil
		}
		if !isGroup(chat) {
			return next(c)
		}
		member, err := b.tb.ChatMemberOf(chat, user)
		if err != nil {
			b.log.Error("admin check failed", logx.Int64("chat_id", chat.ID), logx.Err(err))
			return nil
		}
		if member.Role != tele.Administrator && member.Role != tele.Creator {
			return c.Send("⛔ Only group admins can use this command", tele.ModeHTML)
		}
		return next(c)
	}
}
