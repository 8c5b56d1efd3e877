package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsbot/internal/egress"
	"newsbot/pkg/logx"
)

func rssBody(titles ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for _, title := range titles {
		fmt.Fprintf(&sb, `<item><title>%s</title><link>https://x/%s</link><description>d</description></item>`, title, title)
	}
	sb.WriteString(`</channel></rss>`)
	return sb.String()
}

func rssServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func directDialer() *egress.Dialer {
	return egress.NewDialer(egress.Config{}, logx.Nop())
}

func TestFetchAllMergesByPriority(t *testing.T) {
	srvA := rssServer(t, rssBody("A"))
	srvB := rssServer(t, rssBody("B"))
	srvC := rssServer(t, rssBody("C"))

	agg := NewAggregator([]Source{
		{Name: "a", URL: srvA.URL, Priority: 2},
		{Name: "b", URL: srvB.URL, Priority: 1},
		{Name: "c", URL: srvC.URL, Priority: 3},
	}, directDialer(), 5*time.Second, logx.Nop())

	items := agg.FetchAll(context.Background())
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	got := []string{items[0].Title, items[1].Title, items[2].Title}
	want := []string{"B", "A", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestFetchAllIsolatesSourceFailure(t *testing.T) {
	good := rssServer(t, rssBody("ok1", "ok2"))
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	agg := NewAggregator([]Source{
		{Name: "bad", URL: bad.URL, Priority: 1},
		{Name: "good", URL: good.URL, Priority: 2},
	}, directDialer(), 5*time.Second, logx.Nop())

	items := agg.FetchAll(context.Background())
	if len(items) != 2 {
		t.Fatalf("expected 2 items from the healthy source, got %d", len(items))
	}
	for _, it := range items {
		if it.Source != "good" {
			t.Fatalf("unexpected source %q", it.Source)
		}
	}
}

func TestFetchAllCapsEntriesPerFeed(t *testing.T) {
	titles := make([]string, 0, maxEntriesPerFeed+5)
	for i := 0; i < maxEntriesPerFeed+5; i++ {
		titles = append(titles, fmt.Sprintf("t%d", i))
	}
	srv := rssServer(t, rssBody(titles...))

	agg := NewAggregator([]Source{{Name: "s", URL: srv.URL, Priority: 1}}, directDialer(), 5*time.Second, logx.Nop())
	items := agg.FetchAll(context.Background())
	if len(items) != maxEntriesPerFeed {
		t.Fatalf("expected %d items, got %d", maxEntriesPerFeed, len(items))
	}
}

func TestNormalizeDropsUntitledAndInheritsSource(t *testing.T) {
	srv := rssServer(t, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`+
		`<item><title></title><link>https://x/1</link></item>`+
		`<item><title> Real one </title><link>https://x/2</link><description>&lt;b&gt;bold&lt;/b&gt; text</description><category>BTC</category><category>ETH</category><category>SOL</category><category>XRP</category></item>`+
		`</channel></rss>`)

	agg := NewAggregator([]Source{{Name: "src", URL: srv.URL, Priority: 7}}, directDialer(), 5*time.Second, logx.Nop())
	items := agg.FetchAll(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected the untitled entry to be dropped, got %d items", len(items))
	}
	it := items[0]
	if it.Title != "Real one" {
		t.Fatalf("title = %q", it.Title)
	}
	if it.Priority != 7 || it.Source != "src" {
		t.Fatalf("source/priority not inherited: %+v", it)
	}
	if it.Summary != "bold text" {
		t.Fatalf("summary = %q", it.Summary)
	}
	if len(it.Tags) != 3 {
		t.Fatalf("expected 3 tags, got %v", it.Tags)
	}
}
