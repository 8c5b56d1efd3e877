package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"newsbot/pkg/logx"
)

// fileStore is the dependency-free persistence backend.
//
// Files (all optional on first run):
//   - <prefix>.recipients.json     (array of chat ids)
//   - <prefix>.last_broadcast.json ({"timestamp": RFC3339Nano})
//   - <prefix>.sent_titles.json    (array of titles, oldest first)
//
// Each mutation rewrites the affected file via tmp + rename.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	recipientsPath string
	broadcastPath  string
	titlesPath     string

	dedupLimit int

	recipients map[int64]struct{}
	last       time.Time
	hasLast    bool
	titles     []string
	titleSet   map[string]struct{}
}

type broadcastRecord struct {
	Timestamp string `json:"timestamp"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:            log,
		recipientsPath: prefix + ".recipients.json",
		broadcastPath:  prefix + ".last_broadcast.json",
		titlesPath:     prefix + ".sent_titles.json",
		dedupLimit:     cfg.DedupLimit,
		recipients:     map[int64]struct{}{},
		titleSet:       map[string]struct{}{},
	}

	var ids []int64
	if err := readJSON(s.recipientsPath, &ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.recipients[id] = struct{}{}
	}

	var rec broadcastRecord
	if err := readJSON(s.broadcastPath, &rec); err != nil {
		return nil, err
	}
	if rec.Timestamp != "" {
		t, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
		if err != nil {
			log.Warn("ignoring malformed last-broadcast record", logx.String("raw", rec.Timestamp))
		} else {
			s.last = t
			s.hasLast = true
		}
	}

	if err := readJSON(s.titlesPath, &s.titles); err != nil {
		return nil, err
	}
	s.titles = clampOldestFirst(s.titles, s.dedupLimit)
	for _, t := range s.titles {
		s.titleSet[t] = struct{}{}
	}

	return s, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Recipients(ctx context.Context) ([]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipientSliceLocked(), nil
}

func (s *fileStore) AddRecipient(ctx context.Context, id int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipients[id]; ok {
		return nil
	}
	s.recipients[id] = struct{}{}
	return writeJSON(s.recipientsPath, s.recipientSliceLocked())
}

func (s *fileStore) RemoveRecipient(ctx context.Context, id int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipients[id]; !ok {
		return nil
	}
	delete(s.recipients, id)
	return writeJSON(s.recipientsPath, s.recipientSliceLocked())
}

func (s *fileStore) HasRecipient(ctx context.Context, id int64) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recipients[id]
	return ok, nil
}

func (s *fileStore) LastBroadcast(ctx context.Context) (time.Time, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast, nil
}

func (s *fileStore) SetLastBroadcast(ctx context.Context, t time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(s.broadcastPath, broadcastRecord{Timestamp: t.Format(time.RFC3339Nano)}); err != nil {
		return err
	}
	s.last = t
	s.hasLast = true
	return nil
}

func (s *fileStore) SeenTitle(ctx context.Context, title string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.titleSet[title]
	return ok, nil
}

func (s *fileStore) RecordTitle(ctx context.Context, title string) error {
	_ = ctx
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.titleSet[title]; ok {
		return nil
	}

	titles := append(s.titles, title)
	evicted := titles[:0:0]
	if over := len(titles) - s.dedupLimit; over > 0 {
		evicted = titles[:over]
		titles = titles[over:]
	}
	if err := writeJSON(s.titlesPath, titles); err != nil {
		return err
	}
	s.titles = titles
	s.titleSet[title] = struct{}{}
	for _, old := range evicted {
		delete(s.titleSet, old)
	}
	return nil
}

func (s *fileStore) recipientSliceLocked() []int64 {
	ids := make([]int64, 0, len(s.recipients))
	for id := range s.recipients {
		ids = append(ids, id)
	}
	// Stable file content and deterministic iteration for callers.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func clampOldestFirst(titles []string, limit int) []string {
	if over := len(titles) - limit; over > 0 {
		return titles[over:]
	}
	return titles
}

// readJSON loads path into out; a missing file leaves out untouched.
func readJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

func writeJSON(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
