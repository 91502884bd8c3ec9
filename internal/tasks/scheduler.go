package tasks

import (
	"fmt"

	"researchhub/internal/config"
	"researchhub/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler    *asynq.Scheduler
	logger       *logger.Logger
	reminderCron string
}

// NewScheduler creates a new task scheduler
func NewScheduler(redis config.RedisConfig, tasks config.TasksConfig, logger *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(redisOpt(redis), &asynq.SchedulerOpts{})

	return &Scheduler{
		scheduler:    scheduler,
		logger:       logger,
		reminderCron: tasks.ReminderCron,
	}
}

// Start registers the periodic tasks and runs the scheduler until Stop.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// registerTasks registers all periodic tasks
func (s *Scheduler) registerTasks() error {
	if s.reminderCron == "" {
		s.logger.Info("pending reminder disabled")
		return nil
	}
	if err := ValidateCron(s.reminderCron); err != nil {
		return err
	}
	entryID, err := s.scheduler.Register(s.reminderCron, NewPendingReminderTask())
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", TaskTypePendingReminder, err)
	}
	s.logger.Info("registered %s %s %s", TaskTypePendingReminder, s.reminderCron, entryID)
	return nil
}

// RegisterCustomTask registers a custom periodic task
func (s *Scheduler) RegisterCustomTask(spec string, taskType string, payload []byte, opts ...asynq.Option) error {
	if err := ValidateCron(spec); err != nil {
		return err
	}
	entryID, err := s.scheduler.Register(spec, asynq.NewTask(taskType, payload, opts...))
	if err != nil {
		return fmt.Errorf("failed to register custom task: %w", err)
	}

	s.logger.Info("registered custom task %s %s %s", taskType, spec, entryID)
	return nil
}
