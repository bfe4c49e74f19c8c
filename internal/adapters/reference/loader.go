package reference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gapwatch/internal/domain"
	"gapwatch/internal/infra/metrics"
)

const maxSnapshotBytes = 10 << 20

// Loader загружает снимок эталонного списка по HTTP или из файла.
type Loader struct {
	client *http.Client
	log    zerolog.Logger
	now    func() time.Time
}

// NewLoader создаёт загрузчик снимков.
func NewLoader(timeout time.Duration, logger zerolog.Logger) *Loader {
	return &Loader{
		client: &http.Client{Timeout: timeout},
		log:    logger.With().Str("component", "reference").Logger(),
		now:    time.Now,
	}
}

// Load читает снимок по адресу: http(s)-ссылка или путь к файлу.
func (l *Loader) Load(ctx context.Context, location string) (domain.ReferenceSnapshot, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return domain.ReferenceSnapshot{}, fmt.Errorf("не указан источник эталонного списка")
	}
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		data, err = l.fetch(ctx, location)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return domain.ReferenceSnapshot{}, fmt.Errorf("загрузка эталонного списка: %w", err)
	}
	snapshot, err := Decode(data, l.now())
	if err != nil {
		return domain.ReferenceSnapshot{}, err
	}
	l.log.Debug().Str("source", location).Int("stories", len(snapshot.Stories)).Msg("reference: снимок загружен")
	return snapshot, nil
}

func (l *Loader) fetch(ctx context.Context, location string) (data []byte, err error) {
	target := location
	if u, perr := url.Parse(location); perr == nil {
		target = u.Host
	}
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest("reference", "fetch", target, start, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("неожиданный статус %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
}
