package tasks

import (
	"context"
	"fmt"

	"researchhub/internal/config"
	"researchhub/internal/utils/logger"

	"github.com/hibiken/asynq"
)

var queuePriorities = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// Server handles task processing
type Server struct {
	server      *asynq.Server
	handler     *TaskHandler
	logger      *logger.Logger
	concurrency int
}

// NewServer creates a new task processing server
func NewServer(redis config.RedisConfig, tasks config.TasksConfig, handler *TaskHandler, logger *logger.Logger) *Server {
	concurrency := tasks.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	server := asynq.NewServer(
		redisOpt(redis),
		asynq.Config{
			Concurrency:    concurrency,
			Queues:         queuePriorities,
			StrictPriority: true,
		},
	)

	return &Server{
		server:      server,
		handler:     handler,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Start starts the task processing server
func (s *Server) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	s.handler.Register(mux)

	s.logger.Info("starting task processing server concurrency %d queues %v", s.concurrency, queuePriorities)

	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	return nil
}

// Stop stops the task processing server
func (s *Server) Stop() {
	s.server.Stop()
	s.logger.Info("task processing server stopped")
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("shutting down task processing server")
	s.server.Shutdown()
}
