package exportapp

import (
	"context"
	"time"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/erp/interchange/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleService manages export schedules. Validation lives on the
// domain type so every write path rejects bad cron, destination and
// retry settings the same way.
type ScheduleService struct {
	repo   export.ScheduleRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(repo export.ScheduleRepository, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// List returns every schedule ordered by name
func (s *ScheduleService) List(ctx context.Context) ([]export.ExportSchedule, error) {
	return s.repo.FindAll(ctx)
}

// Get returns one schedule
func (s *ScheduleService) Get(ctx context.Context, id uuid.UUID) (*export.ExportSchedule, error) {
	return s.repo.FindByID(ctx, id)
}

// Create validates and stores a new schedule
func (s *ScheduleService) Create(ctx context.Context, p export.ScheduleParams) (*export.ExportSchedule, error) {
	schedule, err := export.NewExportSchedule(p, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, err
	}

	logger.WithLogger(logger.WithSchedule(ctx, schedule.ID), s.logger).Info("Export schedule created",
		zap.String("name", schedule.Name),
		zap.String("cron", schedule.Cron),
		zap.String("destination", schedule.Destination.Describe()),
	)
	return schedule, nil
}

// Update replaces the editable settings and recomputes the next run
func (s *ScheduleService) Update(ctx context.Context, id uuid.UUID, p export.ScheduleParams) (*export.ExportSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := schedule.Update(p, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, err
	}

	logger.WithLogger(logger.WithSchedule(ctx, id), s.logger).Info("Export schedule updated",
		zap.String("cron", schedule.Cron),
		zap.Bool("enabled", schedule.Enabled),
	)
	return schedule, nil
}

// Delete removes a schedule. Its run history is kept.
func (s *ScheduleService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.WithLogger(logger.WithSchedule(ctx, id), s.logger).Info("Export schedule deleted")
	return nil
}
