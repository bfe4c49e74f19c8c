package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gapwatch/internal/domain"
)

const (
	// DefaultTopic используется для сюжетов без рубрики.
	DefaultTopic  = "top"
	pubDateLayout = "2006-01-02T15:04:05Z"
)

// Topics перечисляет рубрики эталонного списка в порядке вывода.
var Topics = []string{"top", "tech", "finance"}

type storyJSON struct {
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Description string      `json:"description"`
	Source      string      `json:"source"`
	Topic       string      `json:"topic,omitempty"`
	PubDate     string      `json:"pubDate,omitempty"`
	TimeAgo     string      `json:"timeAgo,omitempty"`
	SourceCount flexibleInt `json:"sourceCount,omitempty"`
}

type snapshotJSON struct {
	Stories  []storyJSON            `json:"stories"`
	CachedAt string                 `json:"cached_at"`
	Topics   map[string][]storyJSON `json:"topics"`
}

// flexibleInt принимает число, строку с числом или пустую строку.
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexibleInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleInt(n)
	return nil
}

// Decode разбирает снимок эталонного списка.
// Относительное время («3 hours ago») пересчитывается от now;
// неразобранная дата сохраняется как есть.
func Decode(data []byte, now time.Time) (domain.ReferenceSnapshot, error) {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.ReferenceSnapshot{}, fmt.Errorf("разбор эталонного списка: %w", err)
	}
	snapshot := domain.ReferenceSnapshot{
		CachedAt: parseCachedAt(raw.CachedAt),
		Topics:   make(map[string][]domain.Story),
	}
	positions := make(map[string]int)
	for _, item := range raw.Stories {
		title := strings.Join(strings.Fields(item.Title), " ")
		if title == "" {
			continue
		}
		topic := strings.ToLower(strings.TrimSpace(item.Topic))
		if topic == "" {
			topic = DefaultTopic
		}
		story := domain.Story{
			Title:       title,
			Link:        strings.TrimSpace(item.URL),
			Description: item.Description,
			Source:      item.Source,
			Topic:       topic,
			SourceCount: int(item.SourceCount),
		}
		story.Published, story.PublishedRaw = resolvePublished(item, positions[topic], now)
		positions[topic]++
		snapshot.Stories = append(snapshot.Stories, story)
		snapshot.Topics[topic] = append(snapshot.Topics[topic], story)
	}
	return snapshot, nil
}

// Encode сериализует снимок в формат кеша эталонного списка.
func Encode(snapshot domain.ReferenceSnapshot) ([]byte, error) {
	out := snapshotJSON{
		Stories: make([]storyJSON, 0, len(snapshot.Stories)),
		Topics:  make(map[string][]storyJSON, len(Topics)),
	}
	if !snapshot.CachedAt.IsZero() {
		out.CachedAt = snapshot.CachedAt.UTC().Format(pubDateLayout)
	}
	for _, topic := range Topics {
		out.Topics[topic] = []storyJSON{}
	}
	for _, story := range snapshot.Stories {
		item := toJSON(story)
		out.Stories = append(out.Stories, item)
		topic := item.Topic
		if topic == "" {
			topic = DefaultTopic
		}
		out.Topics[topic] = append(out.Topics[topic], item)
	}
	return json.MarshalIndent(out, "", "  ")
}

func toJSON(story domain.Story) storyJSON {
	pub := story.PublishedRaw
	if story.HasPublished() {
		pub = story.Published.UTC().Format(pubDateLayout)
	}
	return storyJSON{
		Title:       story.Title,
		URL:         story.Link,
		Description: story.Description,
		Source:      story.Source,
		Topic:       story.Topic,
		PubDate:     pub,
		SourceCount: flexibleInt(story.SourceCount),
	}
}

func resolvePublished(item storyJSON, position int, now time.Time) (time.Time, string) {
	raw := strings.TrimSpace(item.PubDate)
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC(), ""
		}
		if t, ok := ParseRelativeTime(raw, now); ok {
			return t, ""
		}
		return time.Time{}, item.PubDate
	}
	if t, ok := ParseRelativeTime(item.TimeAgo, now); ok {
		return t, ""
	}
	return FallbackPublished(now, position), ""
}

func parseCachedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
