package domain

import (
	"context"
	"time"
)

// RefreshCause описывает источник запроса на пересчёт.
type RefreshCause string

const (
	// RefreshCauseManual — пересчёт запрошен вручную.
	RefreshCauseManual RefreshCause = "manual"
	// RefreshCauseScheduled — пересчёт запланирован по расписанию.
	RefreshCauseScheduled RefreshCause = "scheduled"
)

// RefreshJob содержит информацию о задаче пересчёта пробелов в покрытии.
type RefreshJob struct {
	ID             string       `json:"job_id,omitempty"`
	Cause          RefreshCause `json:"cause"`
	RequestedAt    time.Time    `json:"requested_at"`
	ReferenceCount int          `json:"reference_count,omitempty"`
	OutletStories  int          `json:"outlet_stories,omitempty"`
}

// RefreshQueue описывает очередь задач на пересчёт.
type RefreshQueue interface {
	Enqueue(ctx context.Context, job RefreshJob) error
	Receive(ctx context.Context) (RefreshJob, AckFunc, error)
}

// AckFunc подтверждает успешную обработку или запрашивает повтор доставки задачи.
type AckFunc func(success bool) error
