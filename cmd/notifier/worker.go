package main

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gapwatch/internal/domain"
	"gapwatch/internal/infra/metrics"
	"gapwatch/internal/usecase/gaps"
)

type rebuilder interface {
	Rebuild(ctx context.Context) (domain.RankedGapList, error)
}

type htmlSender interface {
	SendHTML(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
}

type jobWorker struct {
	log    zerolog.Logger
	queue  domain.RefreshQueue
	gaps   rebuilder
	cache  domain.Cache
	out    htmlSender
	chatID int64
	limit  int
	ttl    time.Duration
}

const maxDeliveryAttempts = 5

func (w *jobWorker) Run(ctx context.Context) {
	attempts := make(map[string]int)
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("notifier: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		jobLog := w.log.With().
			Str("job_id", job.ID).
			Str("cause", string(job.Cause)).
			Logger()

		err = w.handleJob(ctx, job, jobLog)
		if err == nil {
			delete(attempts, job.ID)
			if ackErr := ack(true); ackErr != nil {
				jobLog.Error().Err(ackErr).Msg("notifier: не удалось подтвердить задачу")
			}
			continue
		}

		attempts[job.ID]++
		if attempts[job.ID] >= maxDeliveryAttempts {
			jobLog.Error().Err(err).Int("attempt", attempts[job.ID]).Msg("notifier: достигнут предел попыток, задача снята")
			delete(attempts, job.ID)
			if ackErr := ack(true); ackErr != nil {
				jobLog.Error().Err(ackErr).Msg("notifier: не удалось подтвердить задачу")
			}
			continue
		}
		jobLog.Warn().Err(err).Int("attempt", attempts[job.ID]).Msg("notifier: задача завершилась ошибкой, повторим позже")
		if ackErr := ack(false); ackErr != nil {
			jobLog.Error().Err(ackErr).Msg("notifier: не удалось вернуть задачу в очередь")
		}
		time.Sleep(time.Second)
	}
}

// handleJob пересчитывает список и отправляет его, если такой набор пробелов ещё не отправлялся.
func (w *jobWorker) handleJob(ctx context.Context, job domain.RefreshJob, jobLog zerolog.Logger) error {
	list, err := w.gaps.Rebuild(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrEmptySnapshot) {
			jobLog.Warn().Msg("notifier: эталонный список ещё не загружен, задача пропущена")
			return nil
		}
		return err
	}
	top := list.Top(w.limit)
	if len(top) == 0 {
		jobLog.Info().Msg("notifier: пробелов нет")
		return nil
	}
	if w.chatID == 0 {
		jobLog.Debug().Int("groups", len(top)).Msg("notifier: TG_CHAT_ID не задан, отправка пропущена")
		return nil
	}
	fingerprint := gaps.Fingerprint(top)
	sent := false
	err = w.cache.Once(ctx, "gapwatch:notified:"+fingerprint, w.ttl, func() error {
		sent = true
		return w.out.SendHTML(w.chatID, gaps.FormatRankedGaps(list, w.limit), nil)
	})
	if err != nil {
		return err
	}
	if sent {
		metrics.GapNotifications.Inc()
		jobLog.Info().Int("groups", len(top)).Str("fingerprint", fingerprint[:12]).Msg("notifier: список пробелов отправлен")
	} else {
		jobLog.Debug().Str("fingerprint", fingerprint[:12]).Msg("notifier: такой список уже отправлялся")
	}
	return nil
}
