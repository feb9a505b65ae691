package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"go.uber.org/zap"
)

// Sweeper фоновая работа, которую запускает планировщик
type Sweeper interface {
	ExpireOverdue(ctx context.Context) (int, error)
	SendReminders(ctx context.Context) (int, error)
}

// Scheduler управляет фоновыми задачами: истечение броней и напоминания
type Scheduler struct {
	sweeper  Sweeper
	rules    config.Rules
	loc      *time.Location
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sweeper Sweeper, rules config.Rules, loc *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		rules:    rules,
		loc:      loc,
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("sweep_interval", s.rules.SweepInterval()),
		zap.Duration("reminder_interval", s.rules.ReminderInterval()),
		zap.Int("sweep_start_hour", s.rules.SweepStartHour),
		zap.Int("sweep_end_hour", s.rules.SweepEndHour),
	)

	s.wg.Add(2)
	go s.loop(ctx, "expiration sweep", s.rules.SweepInterval(), s.sweepTick)
	go s.loop(ctx, "reminders", s.rules.ReminderInterval(), s.reminderTick)
}

// Stop останавливает фоновые задачи и ждёт завершения текущего цикла
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// loop вызывает tick сразу и затем каждый interval. Stop и ctx проверяются
// только между тиками
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, tick func(ctx context.Context)) {
	defer s.wg.Done()

	tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick(ctx)
		case <-s.stopChan:
			s.logger.Info("Background task stopped", zap.String("task", name))
			return
		case <-ctx.Done():
			s.logger.Info("Background task cancelled", zap.String("task", name))
			return
		}
	}
}

// sweepTick отменяет просроченные брони только в рабочие часы
func (s *Scheduler) sweepTick(ctx context.Context) {
	now := s.now().In(s.loc)
	if !s.rules.InSweepWindow(now) {
		s.logger.Debug("Outside sweep hours, skipping", zap.Time("now", now))
		return
	}

	expired, err := s.sweeper.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("Expiration sweep finished with errors",
			zap.Int("expired", expired),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Expiration sweep completed", zap.Int("expired", expired))
}

func (s *Scheduler) reminderTick(ctx context.Context) {
	sent, err := s.sweeper.SendReminders(ctx)
	if err != nil {
		s.logger.Warn("Reminder run finished with errors",
			zap.Int("sent", sent),
			zap.Error(err),
		)
		return
	}
	if sent > 0 {
		s.logger.Info("Reminders sent", zap.Int("sent", sent))
	}
}
