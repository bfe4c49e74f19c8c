package reference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gapwatch/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const sampleSnapshot = `{
  "stories": [
    {"title": "Fed Slashes Interest Rates", "url": "https://discover.example/fed", "description": "", "source": "Perplexity", "topic": "finance", "pubDate": "2026-03-01T10:00:00Z", "sourceCount": 12},
    {"title": "  New   Chip Unveiled ", "url": "https://discover.example/chip", "source": "Perplexity", "topic": "tech", "pubDate": "3 hours ago", "sourceCount": ""},
    {"title": "Storm Hits Coast", "url": "https://discover.example/storm", "source": "Perplexity", "pubDate": "around noon", "sourceCount": "7"},
    {"title": "", "url": "https://discover.example/empty", "topic": "top"},
    {"title": "Undated Story", "url": "https://discover.example/undated", "topic": "tech", "timeAgo": "n/a"}
  ],
  "cached_at": "2026-03-01T11:55:00Z",
  "topics": {"top": [], "tech": [], "finance": []}
}`

func TestDecodeSnapshot(t *testing.T) {
	snap, err := Decode([]byte(sampleSnapshot), testNow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(snap.Stories) != 4 {
		t.Fatalf("ожидали 4 сюжета, получили %d", len(snap.Stories))
	}
	if !snap.CachedAt.Equal(time.Date(2026, 3, 1, 11, 55, 0, 0, time.UTC)) {
		t.Fatalf("cached_at разобран неверно: %v", snap.CachedAt)
	}

	fed := snap.Stories[0]
	if fed.Topic != "finance" || fed.SourceCount != 12 || !fed.Published.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("неожиданный сюжет: %+v", fed)
	}

	chip := snap.Stories[1]
	if chip.Title != "New Chip Unveiled" || chip.SourceCount != 0 {
		t.Fatalf("неожиданный сюжет: %+v", chip)
	}
	if !chip.Published.Equal(testNow.Add(-3 * time.Hour)) {
		t.Fatalf("относительное время разобрано неверно: %v", chip.Published)
	}

	storm := snap.Stories[2]
	if storm.Topic != DefaultTopic || storm.SourceCount != 7 {
		t.Fatalf("неожиданный сюжет: %+v", storm)
	}
	if storm.HasPublished() || storm.PublishedRaw != "around noon" {
		t.Fatalf("неразобранная дата должна сохраняться как есть: %+v", storm)
	}

	undated := snap.Stories[3]
	if !undated.Published.Equal(testNow.Add(-45 * time.Minute)) {
		t.Fatalf("ожидали условное время второго сюжета рубрики, получили %v", undated.Published)
	}

	if len(snap.Topics["tech"]) != 2 || len(snap.Topics["finance"]) != 1 || len(snap.Topics["top"]) != 1 {
		t.Fatalf("неверный индекс рубрик: %v", snap.Topics)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := Decode([]byte("{"), testNow); err == nil {
		t.Fatalf("ожидали ошибку разбора")
	}
}

func TestEncodeKeepsCacheFormat(t *testing.T) {
	snap, err := Decode([]byte(sampleSnapshot), testNow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"cached_at": "2026-03-01T11:55:00Z"`, `"pubDate": "2026-03-01T09:00:00Z"`, `"pubDate": "around noon"`, `"finance": [`} {
		if !strings.Contains(out, want) {
			t.Fatalf("ожидали %s в %s", want, out)
		}
	}
	again, err := Decode(data, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("повторный Decode: %v", err)
	}
	if len(again.Stories) != len(snap.Stories) || !again.Stories[1].Published.Equal(snap.Stories[1].Published) {
		t.Fatalf("абсолютные даты должны сохраняться между циклами")
	}
}

func TestParseRelativeTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"5 minutes ago", testNow.Add(-5 * time.Minute), true},
		{"12 min ago", testNow.Add(-12 * time.Minute), true},
		{"1 hour ago", testNow.Add(-time.Hour), true},
		{"4 hrs", testNow.Add(-4 * time.Hour), true},
		{"2 days ago", testNow.AddDate(0, 0, -2), true},
		{"1 week ago", testNow.AddDate(0, 0, -7), true},
		{"2 Months ago", testNow.AddDate(0, 0, -60), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseRelativeTime(tc.in, testNow)
		if ok != tc.ok || !got.Equal(tc.want) {
			t.Fatalf("ParseRelativeTime(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCheckReplacement(t *testing.T) {
	cases := []struct {
		existing, incoming int
		rejected           bool
	}{
		{existing: 0, incoming: 0, rejected: true},
		{existing: 0, incoming: 29, rejected: true},
		{existing: 0, incoming: 30, rejected: false},
		{existing: 100, incoming: 49, rejected: true},
		{existing: 100, incoming: 50, rejected: false},
		{existing: 40, incoming: 35, rejected: false},
	}
	for _, tc := range cases {
		err := CheckReplacement(tc.existing, tc.incoming, DefaultMinStories)
		if got := errors.Is(err, ErrSnapshotRejected); got != tc.rejected {
			t.Fatalf("CheckReplacement(%d, %d) rejected=%v, want %v (%v)", tc.existing, tc.incoming, got, tc.rejected, err)
		}
	}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	c.mu.Lock()
	if _, ok := c.data[key]; ok {
		c.mu.Unlock()
		return nil
	}
	c.data[key] = []byte("1")
	c.mu.Unlock()
	return fn()
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func snapshotOf(n int) domain.ReferenceSnapshot {
	snap := domain.ReferenceSnapshot{CachedAt: testNow}
	for i := 0; i < n; i++ {
		snap.Stories = append(snap.Stories, domain.Story{Title: fmt.Sprintf("Story %d", i), Topic: "top", Published: testNow})
	}
	return snap
}

func TestAcceptGuardsStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewCacheStore(newMemoryCache(), "ref", 0)

	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrCacheMiss) {
		t.Fatalf("ожидали ErrCacheMiss, получили %v", err)
	}
	if err := Accept(ctx, store, snapshotOf(10), DefaultMinStories); !errors.Is(err, ErrSnapshotRejected) {
		t.Fatalf("маленький снимок должен отклоняться: %v", err)
	}
	if err := Accept(ctx, store, snapshotOf(80), DefaultMinStories); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := Accept(ctx, store, snapshotOf(35), DefaultMinStories); !errors.Is(err, ErrSnapshotRejected) {
		t.Fatalf("снимок меньше половины должен отклоняться: %v", err)
	}
	stored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored.Stories) != 80 {
		t.Fatalf("сохранённый снимок должен остаться прежним, получили %d", len(stored.Stories))
	}
}

func TestLoaderReadsFileAndHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cache.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleSnapshot))
	}))
	defer srv.Close()

	loader := NewLoader(5*time.Second, zerolog.Nop())
	loader.now = func() time.Time { return testNow }
	ctx := context.Background()

	snap, err := loader.Load(ctx, srv.URL+"/cache.json")
	if err != nil {
		t.Fatalf("HTTP Load: %v", err)
	}
	if len(snap.Stories) != 4 {
		t.Fatalf("ожидали 4 сюжета, получили %d", len(snap.Stories))
	}
	if _, err := loader.Load(ctx, srv.URL+"/missing.json"); err == nil {
		t.Fatalf("ожидали ошибку для 404")
	}

	path := filepath.Join(t.TempDir(), "perplexity_cache.json")
	if err := os.WriteFile(path, []byte(sampleSnapshot), 0o600); err != nil {
		t.Fatalf("запись файла: %v", err)
	}
	snap, err = loader.Load(ctx, path)
	if err != nil {
		t.Fatalf("file Load: %v", err)
	}
	if snap.Stories[0].Title != "Fed Slashes Interest Rates" {
		t.Fatalf("неожиданный первый сюжет: %+v", snap.Stories[0])
	}
	if _, err := loader.Load(ctx, " "); err == nil {
		t.Fatalf("ожидали ошибку для пустого адреса")
	}
}

func TestUpdaterLoadsAndAccepts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	small := filepath.Join(dir, "small.json")
	if err := os.WriteFile(small, []byte(sampleSnapshot), 0o600); err != nil {
		t.Fatalf("запись файла: %v", err)
	}
	data, err := Encode(snapshotOf(40))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	full := filepath.Join(dir, "full.json")
	if err := os.WriteFile(full, data, 0o600); err != nil {
		t.Fatalf("запись файла: %v", err)
	}

	store := NewCacheStore(newMemoryCache(), "ref", 0)
	loader := NewLoader(time.Second, zerolog.Nop())

	if _, err := NewUpdater(loader, store, small, DefaultMinStories).Update(ctx); !errors.Is(err, ErrSnapshotRejected) {
		t.Fatalf("снимок из 4 сюжетов должен отклоняться: %v", err)
	}
	n, err := NewUpdater(loader, store, full, DefaultMinStories).Update(ctx)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 40 {
		t.Fatalf("ожидали 40 сюжетов, получили %d", n)
	}
}
