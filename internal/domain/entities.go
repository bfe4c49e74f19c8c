package domain

import "time"

// Story описывает заголовок, полученный из ленты издания или из эталонного списка.
type Story struct {
	Title        string
	Link         string
	Description  string
	Published    time.Time
	PublishedRaw string
	Source       string
	Topic        string
	SubFeed      string
	SourceCount  int
	FeedID       string
}

// HasPublished сообщает, удалось ли разобрать время публикации.
func (s Story) HasPublished() bool {
	return !s.Published.IsZero()
}

// Feed описывает одну RSS/Atom-ленту издания.
type Feed struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

// Outlet описывает издание из таблицы конфигурации.
type Outlet struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Feeds   []Feed `yaml:"feeds" json:"feeds"`
}

// OutletStories связывает издание с его текущими заголовками.
type OutletStories struct {
	Outlet  Outlet
	Stories []Story
}

// ReferenceSnapshot хранит эталонный список, с которым сравнивается покрытие изданий.
type ReferenceSnapshot struct {
	Stories  []Story
	CachedAt time.Time
	Topics   map[string][]Story
}

// GapGroup объединяет пропущенные эталоном заголовки об одном и том же событии.
type GapGroup struct {
	Title       string
	Link        string
	Description string
	Keywords    []string
	Entities    []string
	Publishers  []string
	Stories     []Story
}

// BuzzScore возвращает число различных изданий в группе.
func (g GapGroup) BuzzScore() int {
	return len(g.Publishers)
}

// RelevanceScore возвращает общее число заголовков в группе.
func (g GapGroup) RelevanceScore() int {
	return len(g.Stories)
}

// HasPublisher проверяет, встречается ли издание в группе.
func (g GapGroup) HasPublisher(tag string) bool {
	for _, p := range g.Publishers {
		if p == tag {
			return true
		}
	}
	return false
}

// RankedGapList содержит упорядоченные группы и сводку по последнему пересчёту.
type RankedGapList struct {
	Groups           []GapGroup
	BuiltAt          time.Time
	ReferenceCount   int
	OutletStoryCount int
	EligibleCount    int
	GapCount         int
}

// Top возвращает первые n групп.
func (l RankedGapList) Top(n int) []GapGroup {
	if n <= 0 || n >= len(l.Groups) {
		return l.Groups
	}
	return l.Groups[:n]
}
