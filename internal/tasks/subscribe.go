package tasks

import (
	"context"
	"time"

	"researchhub/internal/events"
	"researchhub/internal/services"
	"researchhub/internal/utils/logger"
)

// Enqueuer is the part of TaskClient the event bridge needs.
type Enqueuer interface {
	EnqueueStatusNotification(ctx context.Context, change services.StatusChanged) error
}

const enqueueTimeout = 5 * time.Second

// SubscribeStatusNotifications turns committed status changes into
// notification tasks. A failed enqueue is logged and dropped; the status
// change itself has already been committed and audited.
func SubscribeStatusNotifications(bus *events.EventBus, enqueuer Enqueuer) {
	log := logger.New("TASKS")
	bus.On(services.EventStatusChanged, func(data interface{}) {
		change, ok := data.(services.StatusChanged)
		if !ok {
			log.Warn("unexpected payload %T for %s", data, services.EventStatusChanged)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if err := enqueuer.EnqueueStatusNotification(ctx, change); err != nil {
			log.Warn("dropping status notification for %d item(s): %v", len(change.ItemIDs), err)
		}
	})
}
