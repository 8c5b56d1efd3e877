//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"newsbot/pkg/logx"
)

func openSQLiteStore(t *testing.T, dir string, limit int) Store {
	t.Helper()
	s, err := Open(Config{Driver: "sqlite", Path: filepath.Join(dir, "newsbot.db"), DedupLimit: limit}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openSQLiteStore(t, dir, 0)

	if err := s.AddRecipient(ctx, -500); err != nil {
		t.Fatalf("AddRecipient: %v", err)
	}
	if err := s.AddRecipient(ctx, -500); err != nil {
		t.Fatalf("AddRecipient twice: %v", err)
	}
	want := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if err := s.SetLastBroadcast(ctx, want); err != nil {
		t.Fatalf("SetLastBroadcast: %v", err)
	}
	if err := s.RecordTitle(ctx, "persisted"); err != nil {
		t.Fatalf("RecordTitle: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := openSQLiteStore(t, dir, 0)
	ids, err := reopened.Recipients(ctx)
	if err != nil || len(ids) != 1 || ids[0] != -500 {
		t.Fatalf("Recipients = %v, %v", ids, err)
	}
	got, ok, err := reopened.LastBroadcast(ctx)
	if err != nil || !ok || !got.Equal(want) {
		t.Fatalf("LastBroadcast = %v, %v, %v", got, ok, err)
	}
	if seen, _ := reopened.SeenTitle(ctx, "persisted"); !seen {
		t.Fatal("title lost across reopen")
	}
}

func TestSQLiteTitleBound(t *testing.T) {
	ctx := context.Background()
	const limit = 4
	s := openSQLiteStore(t, t.TempDir(), limit)

	for i := 0; i < limit+2; i++ {
		if err := s.RecordTitle(ctx, fmt.Sprintf("t-%d", i)); err != nil {
			t.Fatalf("RecordTitle: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if seen, _ := s.SeenTitle(ctx, fmt.Sprintf("t-%d", i)); seen {
			t.Fatalf("t-%d should be evicted", i)
		}
	}
	for i := 2; i < limit+2; i++ {
		if seen, _ := s.SeenTitle(ctx, fmt.Sprintf("t-%d", i)); !seen {
			t.Fatalf("t-%d missing", i)
		}
	}
}
