package app

import (
	"context"
	"time"

	"github.com/lessonmarket/backend/internal/service"
	"go.uber.org/zap"
)

// Записи на конкретные даты старше недели никому не видны в проекции,
// фоновая задача подчищает их из инвентаря
const pruneKeepDays = 7

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	availability *service.AvailabilityService
	logger       *zap.Logger
	stopChan     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(availability *service.AvailabilityService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		availability: availability,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runPruneTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runPruneTask периодически удаляет просроченные записи доступности
func (s *Scheduler) runPruneTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.prune(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.prune(ctx)
		case <-s.stopChan:
			s.logger.Info("Prune task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Prune task cancelled")
			return
		}
	}
}

func (s *Scheduler) prune(ctx context.Context) {
	err := s.availability.PruneExpiredDates(ctx, time.Now(), pruneKeepDays)
	if err != nil {
		s.logger.Error("Failed to prune expired availability", zap.Error(err))
	}
}
