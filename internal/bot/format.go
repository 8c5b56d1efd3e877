package bot

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"newsbot/internal/feed"
	"newsbot/pkg/tgui"
)

// Display cut for the summary; shorter than the stored bound so captions
// stay well under Telegram's limit.
const summaryDisplayLen = 350

const divider = "━━━━━━━━━━━━━━━━━━"

// render builds the Telegram HTML body for one article.
func (b *Bot) render(item feed.Item) tgui.H {
	var sb strings.Builder

	sb.WriteString("\U0001f4f0 ")
	sb.WriteString(tgui.B(item.Title).String())
	sb.WriteString("\n\n" + divider + "\n\n")

	if s := tgui.Truncate(item.Summary, summaryDisplayLen); s != "" {
		sb.WriteString("\U0001f4dd ")
		sb.WriteString(tgui.Esc(s).String())
		sb.WriteString("\n")
	}

	if tags := hashtags(item.Tags); tags != "" {
		sb.WriteString("\n\U0001f3f7 ")
		sb.WriteString(tgui.Esc(tags).String())
		sb.WriteString("\n")
	}

	sb.WriteString("\n" + divider + "\n\n")
	sb.WriteString("\U0001f517 ")
	sb.WriteString(tgui.Link("Read Full Article", item.Link).String())
	sb.WriteString("\n\U0001f4e1 Source: ")
	sb.WriteString(tgui.B(item.Source).String())

	if b.cfg.TradeURL != "" {
		sb.WriteString("\n\n\U0001f4b9 ")
		sb.WriteString(tgui.I("Trade the latest crypto trends!").String())
	}

	return tgui.Raw(sb.String())
}

// hashtags renders up to three feed categories as #tags.
func hashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ReplaceAll(strings.TrimSpace(t), " ", "")
		if t == "" {
			continue
		}
		out = append(out, "#"+t)
	}
	return strings.Join(out, " ")
}

// keyboard builds the call-to-action buttons. Nil when no URLs are
// configured.
func (b *Bot) keyboard() *tele.ReplyMarkup {
	if b.cfg.TradeURL == "" && b.cfg.DownloadURL == "" {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	if b.cfg.TradeURL != "" {
		rows = append(rows, markup.Row(markup.URL("\U0001f680 Trade Now", b.cfg.TradeURL)))
	}
	if b.cfg.DownloadURL != "" {
		rows = append(rows, markup.Row(markup.URL("\U0001f4f1 Download App", b.cfg.DownloadURL)))
	}
	markup.Inline(rows...)
	return markup
}
