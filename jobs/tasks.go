package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gestor-crm/gestor/internal/jobs"
	"github.com/gestor-crm/gestor/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotify delivers a session notification outside the request path.
	TaskTypeNotify = "notify:deliver"
)

// NotifyPayload carries one notification.
type NotifyPayload struct {
	Notification shared.Notification `json:"notification"`
}

// NewNotifyTask constructs an Asynq task.
func NewNotifyTask(n shared.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(NotifyPayload{Notification: n})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotify, data), nil
}

// NotifyJob hands queued notifications to a sink.
type NotifyJob struct {
	sink    shared.Notifier
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewNotifyJob constructs a NotifyJob. A nil sink logs through logger.
func NewNotifyJob(sink shared.Notifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotifyJob {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = shared.LogNotifier{Logger: logger}
	}
	return &NotifyJob{sink: sink, logger: logger, metrics: metrics}
}

// Handle processes TaskTypeNotify tasks. Malformed payloads are not retried.
func (j *NotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskTypeNotify)
	return tracker.End(j.deliver(ctx, t))
}

func (j *NotifyJob) deliver(ctx context.Context, t *asynq.Task) error {
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Warn("notify payload", slog.Any("error", err))
		return fmt.Errorf("decode notify payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Notification.Title == "" {
		return fmt.Errorf("notify payload without title: %w", asynq.SkipRetry)
	}
	j.sink.Notify(ctx, payload.Notification)
	j.metrics.AddNotification(payload.Notification.Kind())
	return nil
}
