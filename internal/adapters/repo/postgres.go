package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gapwatch/internal/domain"
	"gapwatch/internal/infra/metrics"
)

// Postgres реализует репозиторий заголовков на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.StoryRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// StoryHash возвращает ключ уникальности заголовка внутри издания.
func StoryHash(story domain.Story) string {
	key := strings.TrimSpace(story.Link)
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(story.Title))
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

// SaveStories сохраняет заголовки издания; повторно увиденные обновляют fetched_at.
func (p *Postgres) SaveStories(ctx context.Context, outletID string, stories []domain.Story) error {
	if len(stories) == 0 {
		return nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	batch := &pgx.Batch{}
	for _, s := range stories {
		var published *time.Time
		if s.HasPublished() {
			t := s.Published.UTC()
			published = &t
		}
		batch.Queue(`
INSERT INTO stories (feed_id, sub_feed, title, link, description, source, topic, published_at, published_raw, hash)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (feed_id, hash) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description, sub_feed=EXCLUDED.sub_feed, fetched_at=now()
`, outletID, s.SubFeed, s.Title, s.Link, s.Description, s.Source, s.Topic, published, s.PublishedRaw, StoryHash(s))
	}
	start := time.Now()
	br := p.pool.SendBatch(ctx, batch)
	metrics.ObserveNetworkRequest("postgres", "stories_send_batch", "stories", start, nil)
	defer br.Close()
	for range stories {
		start = time.Now()
		_, err := br.Exec()
		metrics.ObserveNetworkRequest("postgres", "stories_batch_exec", "stories", start, err)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListStories возвращает заголовки издания, увиденные после since, в порядке первого появления.
func (p *Postgres) ListStories(ctx context.Context, outletID string, since time.Time) ([]domain.Story, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT feed_id, sub_feed, title, link, description, source, topic, published_at, published_raw
FROM stories WHERE feed_id = $1 AND fetched_at >= $2
ORDER BY id
`, outletID, since)
	metrics.ObserveNetworkRequest("postgres", "stories_list", "stories", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stories []domain.Story
	for rows.Next() {
		var (
			s         domain.Story
			published *time.Time
		)
		if err := rows.Scan(&s.FeedID, &s.SubFeed, &s.Title, &s.Link, &s.Description, &s.Source, &s.Topic, &published, &s.PublishedRaw); err != nil {
			return nil, err
		}
		if published != nil {
			s.Published = published.UTC()
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

// DeleteStoriesBefore удаляет заголовки, не встречавшиеся в лентах с cutoff.
func (p *Postgres) DeleteStoriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM stories WHERE fetched_at < $1`, cutoff)
	metrics.ObserveNetworkRequest("postgres", "stories_prune", "stories", start, err)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
