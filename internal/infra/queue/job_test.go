package queue

import (
	"strings"
	"testing"
	"time"

	"gapwatch/internal/domain"
)

func TestJobEncoding(t *testing.T) {
	job := domain.RefreshJob{ID: "abc", Cause: domain.RefreshCauseManual, RequestedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	payload, err := encodeJob(job)
	if err != nil {
		t.Fatalf("encodeJob: %v", err)
	}
	if !strings.Contains(string(payload), `"job_id":"abc"`) {
		t.Fatalf("неожиданный payload: %s", payload)
	}
	decoded, err := decodeJob(payload)
	if err != nil {
		t.Fatalf("decodeJob: %v", err)
	}
	if decoded.ID != job.ID || decoded.Cause != job.Cause || !decoded.RequestedAt.Equal(job.RequestedAt) {
		t.Fatalf("задача искажена: %+v", decoded)
	}
}

func TestDecodeJobDefaultsCause(t *testing.T) {
	job, err := decodeJob([]byte(`{"job_id":"x"}`))
	if err != nil {
		t.Fatalf("decodeJob: %v", err)
	}
	if job.Cause != domain.RefreshCauseScheduled {
		t.Fatalf("ожидали причину по умолчанию, получили %q", job.Cause)
	}
	if _, err := decodeJob([]byte("not json")); err == nil {
		t.Fatalf("ожидали ошибку разбора")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, _, err := Open("kafka", nil, "", "jobs"); err == nil {
		t.Fatalf("ожидали ошибку для неизвестного драйвера")
	}
	if _, _, err := Open("redis", nil, "", "jobs"); err == nil {
		t.Fatalf("ожидали ошибку без клиента Redis")
	}
	if _, _, err := Open("rabbitmq", nil, "", "jobs"); err == nil {
		t.Fatalf("ожидали ошибку без адреса брокера")
	}
}
