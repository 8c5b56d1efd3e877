// Package feed fetches and normalizes articles from the configured
// syndication sources.
package feed

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"newsbot/internal/egress"
	"newsbot/pkg/logx"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxEntriesPerFeed   = 10
	maxTags             = 3
)

type Aggregator struct {
	dialer *egress.Dialer
	log    logx.Logger

	fetchTimeout time.Duration

	mu      sync.RWMutex
	sources []Source
}

func NewAggregator(sources []Source, dialer *egress.Dialer, fetchTimeout time.Duration, log logx.Logger) *Aggregator {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Aggregator{
		dialer:       dialer,
		log:          log,
		fetchTimeout: fetchTimeout,
		sources:      append([]Source(nil), sources...),
	}
}

// SetSources swaps the source list (config hot reload).
func (a *Aggregator) SetSources(sources []Source) {
	a.mu.Lock()
	a.sources = append([]Source(nil), sources...)
	a.mu.Unlock()
}

// FetchAll acquires a fresh egress session, fetches every source in
// parallel and returns the merged list, stable-sorted by priority
// ascending. Per-source failures are logged and yield nothing; FetchAll
// itself never fails.
func (a *Aggregator) FetchAll(ctx context.Context) []Item {
	a.mu.RLock()
	sources := a.sources
	a.mu.RUnlock()
	if len(sources) == 0 {
		return nil
	}

	session := a.dialer.Acquire(ctx)

	results := make([][]Item, len(sources))
	var wg sync.WaitGroup
	wg.Add(len(sources))
	for i, src := range sources {
		go func(i int, src Source) {
			defer wg.Done()
			results[i] = a.fetchOne(ctx, session, src)
		}(i, src)
	}
	wg.Wait()

	var all []Item
	for _, items := range results {
		all = append(all, items...)
	}
	// Stable: ties keep fetch order, which the dispatcher relies on.
	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority < all[j].Priority })
	return all
}

func (a *Aggregator) fetchOne(ctx context.Context, session *egress.Session, src Source) []Item {
	fctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = session.Client

	parsed, err := parser.ParseURLWithContext(src.URL, fctx)
	if err != nil {
		a.log.Error("feed fetch failed", logx.String("feed", src.Name), logx.Err(err))
		return nil
	}

	entries := parsed.Items
	if len(entries) > maxEntriesPerFeed {
		entries = entries[:maxEntriesPerFeed]
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		item, ok := normalize(entry, src)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	a.log.Info("feed fetched", logx.String("feed", src.Name), logx.Int("articles", len(items)))
	return items
}

func normalize(entry *gofeed.Item, src Source) (Item, bool) {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		// Title is the dedup key; an untitled entry can never be tracked.
		return Item{}, false
	}

	summary := entry.Description
	if strings.TrimSpace(summary) == "" {
		summary = entry.Content
	}

	tags := entry.Categories
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	return Item{
		Title:     title,
		Link:      strings.TrimSpace(entry.Link),
		Summary:   CleanSummary(summary),
		Source:    src.Name,
		Priority:  src.Priority,
		Published: entry.Published,
		ImageURL:  ExtractImage(entry),
		Tags:      append([]string(nil), tags...),
	}, true
}
