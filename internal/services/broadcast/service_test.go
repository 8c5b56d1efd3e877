package broadcast

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"newsbot/internal/feed"
	"newsbot/pkg/logx"
)

type fakeFetch struct{ items []feed.Item }

func (f *fakeFetch) FetchAll(ctx context.Context) []feed.Item { return f.items }

type memDedup struct {
	seen    map[string]bool
	seenErr error
	recErr  error
}

func newMemDedup(titles ...string) *memDedup {
	m := &memDedup{seen: map[string]bool{}}
	for _, t := range titles {
		m.seen[t] = true
	}
	return m
}

func (m *memDedup) Seen(ctx context.Context, title string) (bool, error) {
	return m.seen[title], m.seenErr
}

func (m *memDedup) Record(ctx context.Context, title string) error {
	if m.recErr != nil {
		return m.recErr
	}
	m.seen[title] = true
	return nil
}

type memGate struct {
	allowed bool
	marked  int
	markErr error
}

func (g *memGate) Allowed(ctx context.Context) (bool, error) { return g.allowed, nil }

func (g *memGate) Remaining(ctx context.Context) (time.Duration, error) {
	if g.allowed {
		return 0, nil
	}
	return 30 * time.Minute, nil
}

func (g *memGate) Mark(ctx context.Context) error {
	if g.markErr != nil {
		return g.markErr
	}
	g.marked++
	return nil
}

type memRecipients struct {
	ids     []int64
	removed []int64
}

func (r *memRecipients) All(ctx context.Context) ([]int64, error) { return r.ids, nil }

func (r *memRecipients) Remove(ctx context.Context, id int64) error {
	r.removed = append(r.removed, id)
	r.ids = slices.DeleteFunc(slices.Clone(r.ids), func(v int64) bool { return v == id })
	return nil
}

// fakeDeliver fails image sends for chats in imageFail and text sends for
// chats in textFail; everything else succeeds.
type fakeDeliver struct {
	imageFail  map[int64]bool
	textFail   map[int64]bool
	imageCalls []int64
	textCalls  []int64
}

func (d *fakeDeliver) DeliverWithImage(ctx context.Context, chatID int64, item feed.Item) error {
	d.imageCalls = append(d.imageCalls, chatID)
	if d.imageFail[chatID] {
		return errors.New("photo rejected")
	}
	return nil
}

func (d *fakeDeliver) DeliverText(ctx context.Context, chatID int64, item feed.Item) error {
	d.textCalls = append(d.textCalls, chatID)
	if d.textFail[chatID] {
		return errors.New("chat unreachable")
	}
	return nil
}

func newTestService(fetch Fetcher, dedup DedupStore, gate CooldownGate, rec RecipientSet, del Deliverer) *Service {
	return New(Config{SendRatePerSec: 1000}, fetch, dedup, gate, rec, del, logx.Nop())
}

func item(title string) feed.Item {
	return feed.Item{Title: title, Link: "https://example.com/a", Source: "Feed"}
}

func TestCycleBlockedByCooldown(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: false}
	fetch := &fakeFetch{items: []feed.Item{item("fresh")}}
	dedup := newMemDedup()
	svc := newTestService(fetch, dedup, gate, &memRecipients{ids: []int64{1}}, &fakeDeliver{})

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Outcome != OutcomeBlocked {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeBlocked)
	}
	if gate.marked != 0 || dedup.seen["fresh"] {
		t.Fatal("blocked cycle must not touch state")
	}
}

func TestCycleNoContentDoesNotConsumeCooldown(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	svc := newTestService(&fakeFetch{}, newMemDedup(), gate, &memRecipients{ids: []int64{1}}, &fakeDeliver{})

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Outcome != OutcomeNoContent {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeNoContent)
	}
	if gate.marked != 0 {
		t.Fatal("empty fetch must not consume the cooldown")
	}
}

func TestCycleNothingNewDoesNotConsumeCooldown(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	fetch := &fakeFetch{items: []feed.Item{item("old a"), item("old b")}}
	svc := newTestService(fetch, newMemDedup("old a", "old b"), gate, &memRecipients{ids: []int64{1}}, &fakeDeliver{})

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Outcome != OutcomeNothingNew {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeNothingNew)
	}
	if gate.marked != 0 {
		t.Fatal("all-seen fetch must not consume the cooldown")
	}
}

func TestCycleSelectsFirstUnseenByPriority(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	fetch := &fakeFetch{items: []feed.Item{item("seen already"), item("the new one"), item("also new")}}
	dedup := newMemDedup("seen already")
	rec := &memRecipients{ids: []int64{10, 20}}
	del := &fakeDeliver{}
	svc := newTestService(fetch, dedup, gate, rec, del)

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Outcome != OutcomeDelivered {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeDelivered)
	}
	if res.Item == nil || res.Item.Title != "the new one" {
		t.Fatalf("delivered %+v, want the first unseen item", res.Item)
	}
	if res.Delivered != 2 || len(res.Pruned) != 0 {
		t.Fatalf("Delivered = %d, Pruned = %v", res.Delivered, res.Pruned)
	}
	if !dedup.seen["the new one"] {
		t.Fatal("delivered title not recorded")
	}
	if dedup.seen["also new"] {
		t.Fatal("only one item per cycle may be recorded")
	}
	if gate.marked != 1 {
		t.Fatalf("gate.marked = %d, want 1", gate.marked)
	}
}

func TestCyclePrunesOnlyFullyFailedRecipients(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	it := item("breaking")
	it.ImageURL = "https://example.com/pic.jpg"
	fetch := &fakeFetch{items: []feed.Item{it}}
	rec := &memRecipients{ids: []int64{1, 2, 3}}
	del := &fakeDeliver{
		// 2 fails on both paths and is pruned. 3 only fails the image
		// send; the text fallback succeeds, so it stays.
		imageFail: map[int64]bool{2: true, 3: true},
		textFail:  map[int64]bool{2: true},
	}
	svc := newTestService(fetch, newMemDedup(), gate, rec, del)

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Delivered != 2 {
		t.Fatalf("Delivered = %d, want 2", res.Delivered)
	}
	if len(res.Pruned) != 1 || res.Pruned[0] != 2 {
		t.Fatalf("Pruned = %v, want [2]", res.Pruned)
	}
	if len(rec.removed) != 1 || rec.removed[0] != 2 {
		t.Fatalf("removed = %v, want [2]", rec.removed)
	}
	// Chat 3 must have seen an image attempt and then a text fallback.
	if !slices.Contains(del.textCalls, 3) {
		t.Fatal("no text fallback for the image-failing recipient")
	}
	// Chat 1 succeeded on the image path, so no text call for it.
	if slices.Contains(del.textCalls, 1) {
		t.Fatal("text sent to a recipient that already got the photo")
	}
	if gate.marked != 1 {
		t.Fatal("partial delivery still counts as a broadcast")
	}
}

func TestCycleTextOnlyWhenNoImage(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	fetch := &fakeFetch{items: []feed.Item{item("plain")}}
	del := &fakeDeliver{}
	svc := newTestService(fetch, newMemDedup(), gate, &memRecipients{ids: []int64{7}}, del)

	if _, err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(del.imageCalls) != 0 {
		t.Fatalf("imageCalls = %v for an item without an image", del.imageCalls)
	}
	if len(del.textCalls) != 1 {
		t.Fatalf("textCalls = %v, want one", del.textCalls)
	}
}

func TestCycleEmptyRegistryStillCommits(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	fetch := &fakeFetch{items: []feed.Item{item("unheard news")}}
	dedup := newMemDedup()
	svc := newTestService(fetch, dedup, gate, &memRecipients{}, &fakeDeliver{})

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Outcome != OutcomeDelivered || res.Delivered != 0 {
		t.Fatalf("res = %+v, want delivered outcome with zero sends", res)
	}
	if !dedup.seen["unheard news"] || gate.marked != 1 {
		t.Fatal("zero-recipient cycle must still record the title and cooldown")
	}
}

func TestCycleCommitFailureIsAnError(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	fetch := &fakeFetch{items: []feed.Item{item("doomed")}}
	dedup := newMemDedup()
	dedup.recErr = errors.New("disk full")
	svc := newTestService(fetch, dedup, gate, &memRecipients{ids: []int64{1}}, &fakeDeliver{})

	if _, err := svc.RunCycle(context.Background()); err == nil {
		t.Fatal("record failure must surface as a cycle error")
	}
	if gate.marked != 0 {
		t.Fatal("cooldown marked despite the failed title record")
	}
}

func TestCycleDedupReadFailureIsAnError(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	fetch := &fakeFetch{items: []feed.Item{item("whatever")}}
	dedup := newMemDedup()
	dedup.seenErr = errors.New("db locked")
	svc := newTestService(fetch, dedup, gate, &memRecipients{ids: []int64{1}}, &fakeDeliver{})

	if _, err := svc.RunCycle(context.Background()); err == nil {
		t.Fatal("dedup read failure must surface as a cycle error")
	}
}

func TestCycleSkipsWhileInFlight(t *testing.T) {
	t.Parallel()
	svc := newTestService(&fakeFetch{}, newMemDedup(), &memGate{allowed: true}, &memRecipients{}, &fakeDeliver{})
	svc.inFlight.Store(true)

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeSkipped)
	}
}

func TestCycleCommitSurvivesCancelledContext(t *testing.T) {
	t.Parallel()
	gate := &memGate{allowed: true}
	fetch := &fakeFetch{items: []feed.Item{item("late news")}}
	dedup := newMemDedup()
	svc := newTestService(fetch, dedup, gate, &memRecipients{}, &fakeDeliver{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Outcome != OutcomeDelivered {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeDelivered)
	}
	if !dedup.seen["late news"] || gate.marked != 1 {
		t.Fatal("commit must run even with a cancelled trigger context")
	}
}
