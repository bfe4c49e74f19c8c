package queue

import (
	"encoding/json"
	"fmt"

	"gapwatch/internal/domain"
)

func encodeJob(job domain.RefreshJob) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return payload, nil
}

func decodeJob(payload []byte) (domain.RefreshJob, error) {
	var job domain.RefreshJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return domain.RefreshJob{}, fmt.Errorf("decode job: %w", err)
	}
	if job.Cause == "" {
		job.Cause = domain.RefreshCauseScheduled
	}
	return job, nil
}
