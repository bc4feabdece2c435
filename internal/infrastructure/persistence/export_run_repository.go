package persistence

import (
	"context"
	"errors"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormExportRunRepository implements export.RunRepository using GORM
type GormExportRunRepository struct {
	db *gorm.DB
}

// NewGormExportRunRepository creates a new GormExportRunRepository
func NewGormExportRunRepository(db *gorm.DB) *GormExportRunRepository {
	return &GormExportRunRepository{db: db}
}

// Create appends a new run
func (r *GormExportRunRepository) Create(ctx context.Context, run *export.ExportRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// UpdateStatus persists the columns a status transition may change
func (r *GormExportRunRepository) UpdateStatus(ctx context.Context, run *export.ExportRun) error {
	result := r.db.WithContext(ctx).
		Model(&export.ExportRun{}).
		Where("id = ?", run.ID).
		Select("status", "scheduled_for", "started_at", "finished_at", "error_message", "row_count", "location", "updated_at").
		Updates(run)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return export.ErrRunNotFound
	}
	return nil
}

// FindByID finds a run by id
func (r *GormExportRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*export.ExportRun, error) {
	var run export.ExportRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, export.ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// FindBySchedule returns the runs of a schedule newest first
func (r *GormExportRunRepository) FindBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]export.ExportRun, error) {
	var runs []export.ExportRun
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at DESC").
		Order("attempt DESC").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// FindByFiring returns the attempts of one firing in attempt order
func (r *GormExportRunRepository) FindByFiring(ctx context.Context, firingID uuid.UUID) ([]export.ExportRun, error) {
	var runs []export.ExportRun
	if err := r.db.WithContext(ctx).Where("firing_id = ?", firingID).Order("attempt ASC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// FindByStatus returns runs in the given status, oldest first
func (r *GormExportRunRepository) FindByStatus(ctx context.Context, status export.RunStatus) ([]export.ExportRun, error) {
	var runs []export.ExportRun
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

var _ export.RunRepository = (*GormExportRunRepository)(nil)
