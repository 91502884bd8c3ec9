package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"researchhub/internal/services"
	"researchhub/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// TaskHandler processes research workflow tasks.
type TaskHandler struct {
	notifications *services.NotificationService
	logger        *logger.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(notifications *services.NotificationService) *TaskHandler {
	return &TaskHandler{
		notifications: notifications,
		logger:        logger.New("task_handler"),
	}
}

// Register binds every task type to its handler.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeStatusNotification, h.HandleStatusNotification)
	mux.HandleFunc(TaskTypePendingReminder, h.HandlePendingReminder)
}

// HandleStatusNotification writes one notification per affected item owner.
// Malformed payloads are not retried.
func (h *TaskHandler) HandleStatusNotification(ctx context.Context, t *asynq.Task) error {
	var change services.StatusChanged
	if err := json.Unmarshal(t.Payload(), &change); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if len(change.ItemIDs) == 0 {
		return fmt.Errorf("%s payload has no items: %w", t.Type(), asynq.SkipRetry)
	}

	n, err := h.notifications.NotifyStatusChange(ctx, change)
	if err != nil {
		return h.logger.Error("failed to store status notifications", err)
	}
	h.logger.Info("stored %d notification(s) for status %s", n, change.Status)
	return nil
}

// HandlePendingReminder logs the size of the review backlog.
func (h *TaskHandler) HandlePendingReminder(ctx context.Context, t *asynq.Task) error {
	n, err := h.notifications.CountPending(ctx)
	if err != nil {
		return h.logger.Error("failed to count pending research items", err)
	}
	if n == 0 {
		h.logger.Debug("no research items awaiting review")
		return nil
	}
	h.logger.Warn("%d research item(s) awaiting review", n)
	return nil
}
