package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"researchhub/internal/config"
	"researchhub/internal/services"
	"researchhub/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// TaskClient enqueues background work on the asynq broker.
type TaskClient struct {
	client *asynq.Client
	logger *logger.Logger
}

func (c *TaskClient) GetClient() *asynq.Client {
	return c.client
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig) *TaskClient {
	return &TaskClient{
		client: asynq.NewClient(redisOpt(cfg)),
		logger: logger.New("TASKS"),
	}
}

// NewStatusNotificationTask builds the task for one committed status change.
func NewStatusNotificationTask(change services.StatusChanged) (*asynq.Task, error) {
	if len(change.ItemIDs) == 0 {
		return nil, fmt.Errorf("status notification without items")
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("failed to encode status notification: %w", err)
	}
	return asynq.NewTask(TaskTypeStatusNotification, payload, statusNotificationOptions()...), nil
}

func NewPendingReminderTask() *asynq.Task {
	payload, _ := json.Marshal(PendingReminderPayload{})
	return asynq.NewTask(TaskTypePendingReminder, payload, pendingReminderOptions()...)
}

// EnqueueStatusNotification satisfies Enqueuer.
func (c *TaskClient) EnqueueStatusNotification(ctx context.Context, change services.StatusChanged) error {
	task, err := NewStatusNotificationTask(change)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return c.logger.Error("failed to enqueue status notification", err)
	}
	c.logger.Debug("enqueued %s id=%s queue=%s items=%d", task.Type(), info.ID, info.Queue, len(change.ItemIDs))
	return nil
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}
