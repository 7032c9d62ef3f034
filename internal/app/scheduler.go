package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"go.uber.org/zap"
)

// SessionCompleter завершает занятия, время которых прошло
type SessionCompleter interface {
	CompleteElapsed(ctx context.Context, now time.Time) ([]model.Session, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sessions SessionCompleter
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sessions SessionCompleter, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sessions: sessions,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	go s.runCompletionTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	<-s.done
}

// runCompletionTask периодически завершает прошедшие занятия
func (s *Scheduler) runCompletionTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.completeSessions(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.completeSessions(ctx)
		case <-s.stopChan:
			s.logger.Info("Session completion task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Session completion task cancelled")
			return
		}
	}
}

func (s *Scheduler) completeSessions(ctx context.Context) {
	completed, err := s.sessions.CompleteElapsed(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to complete elapsed sessions", zap.Error(err))
		return
	}

	if len(completed) > 0 {
		s.logger.Info("Elapsed sessions marked completed", zap.Int("count", len(completed)))
	}
}
