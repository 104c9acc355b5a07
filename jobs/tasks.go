package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup loads report source sets into the cache.
	TaskReportsWarmup = "reports:warmup"
	// TaskReportsBump invalidates every cached source set.
	TaskReportsBump = "reports:bump"
)

// WarmupPayload lists the YYYY-MM months to warm. Empty means the current
// and previous month at run time.
type WarmupPayload struct {
	Months []string `json:"months,omitempty"`
}

// NewWarmupTask constructs a warmup task.
func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data, asynq.MaxRetry(3)), nil
}

// NewBumpTask constructs a cache bump task.
func NewBumpTask() *asynq.Task {
	return asynq.NewTask(TaskReportsBump, nil, asynq.MaxRetry(5))
}
