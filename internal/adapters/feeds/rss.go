package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"gapwatch/internal/domain"
	"gapwatch/internal/infra/metrics"
)

const (
	descriptionLimit = 300
	userAgent        = "gapwatch/1.0 (+https://github.com/gapwatch)"
)

// RSSFetcher загружает RSS/Atom-ленты изданий через gofeed.
type RSSFetcher struct {
	parser *gofeed.Parser
	log    zerolog.Logger
}

var _ domain.FeedFetcher = (*RSSFetcher)(nil)

// NewRSSFetcher создаёт загрузчик лент.
func NewRSSFetcher(timeout time.Duration, logger zerolog.Logger) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}
	return &RSSFetcher{parser: parser, log: logger.With().Str("component", "feeds").Logger()}
}

// Fetch загружает все ленты издания и возвращает заголовки в порядке лент.
// Ошибка возвращается, только если не удалось загрузить ни одну ленту.
func (f *RSSFetcher) Fetch(ctx context.Context, outlet domain.Outlet) ([]domain.Story, error) {
	var (
		stories []domain.Story
		errs    []error
	)
	for _, feed := range outlet.Feeds {
		start := time.Now()
		parsed, err := f.parser.ParseURLWithContext(feed.URL, ctx)
		metrics.ObserveNetworkRequest("feeds", "fetch", outlet.ID, start, err)
		if err != nil {
			f.log.Warn().Err(err).Str("outlet", outlet.ID).Str("feed", feed.URL).Msg("feeds: не удалось загрузить ленту")
			errs = append(errs, fmt.Errorf("лента %s: %w", feed.URL, err))
			continue
		}
		stories = append(stories, StoriesFromFeed(parsed, outlet, feed.Label)...)
	}
	stories = DeduplicateByURL(stories)
	if len(stories) == 0 && len(errs) > 0 {
		err := fmt.Errorf("издание %s: %w", outlet.ID, errors.Join(errs...))
		metrics.ObserveFeedFetch(outlet.ID, 0, err)
		return nil, err
	}
	metrics.ObserveFeedFetch(outlet.ID, len(stories), nil)
	f.log.Debug().Str("outlet", outlet.ID).Int("stories", len(stories)).Msg("feeds: ленты загружены")
	return stories, nil
}

// StoriesFromFeed превращает элементы ленты в заголовки издания.
func StoriesFromFeed(feed *gofeed.Feed, outlet domain.Outlet, label string) []domain.Story {
	if feed == nil {
		return nil
	}
	out := make([]domain.Story, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := collapseSpaces(item.Title)
		if title == "" {
			continue
		}
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		story := domain.Story{
			Title:       title,
			Link:        strings.TrimSpace(item.Link),
			Description: truncate(HTMLToText(desc), descriptionLimit),
			Source:      outlet.Name,
			SubFeed:     label,
			FeedID:      outlet.ID,
		}
		switch {
		case item.PublishedParsed != nil:
			story.Published = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			story.Published = item.UpdatedParsed.UTC()
		case item.Published != "":
			story.PublishedRaw = item.Published
		default:
			story.PublishedRaw = item.Updated
		}
		out = append(out, story)
	}
	return out
}
