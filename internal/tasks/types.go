package tasks

import "time"

// Task Types
const (
	// Research workflow tasks
	TaskTypeStatusNotification = "research:status_notification"
	TaskTypePendingReminder    = "research:pending_reminder"
)

// Task Queues
const (
	QueueCritical = "critical" // For time-sensitive tasks like status notifications
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like reminders
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
	RetryMin     = 1
)

// PendingReminderPayload is scheduled with an empty body; Date is filled by tests and manual runs.
type PendingReminderPayload struct {
	Date string `json:"date,omitempty"`
}
