package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormExportScheduleRepository implements export.ScheduleRepository using GORM
type GormExportScheduleRepository struct {
	db *gorm.DB
}

// NewGormExportScheduleRepository creates a new GormExportScheduleRepository
func NewGormExportScheduleRepository(db *gorm.DB) *GormExportScheduleRepository {
	return &GormExportScheduleRepository{db: db}
}

// FindByID finds a schedule by id
func (r *GormExportScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*export.ExportSchedule, error) {
	var s export.ExportSchedule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, export.ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindAll returns every schedule ordered by name
func (r *GormExportScheduleRepository) FindAll(ctx context.Context) ([]export.ExportSchedule, error) {
	var schedules []export.ExportSchedule
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// FindEnabled returns the enabled schedules ordered by id
func (r *GormExportScheduleRepository) FindEnabled(ctx context.Context) ([]export.ExportSchedule, error) {
	var schedules []export.ExportSchedule
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("id ASC").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// Create inserts a new schedule
func (r *GormExportScheduleRepository) Create(ctx context.Context, schedule *export.ExportSchedule) error {
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		if isDuplicateKey(err) {
			return export.ErrDuplicateName
		}
		return err
	}
	return nil
}

// Update writes every settings column, false and empty values included.
// last_run_at belongs to the executor and is never written here.
func (r *GormExportScheduleRepository) Update(ctx context.Context, schedule *export.ExportSchedule) error {
	result := r.db.WithContext(ctx).
		Model(&export.ExportSchedule{}).
		Where("id = ?", schedule.ID).
		Select("*").
		Omit("id", "created_at", "last_run_at").
		Updates(schedule)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return export.ErrDuplicateName
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return export.ErrScheduleNotFound
	}
	return nil
}

// UpdateRunTimes writes only the run bookkeeping columns so a concurrent
// admin edit is never overwritten by the scheduler.
func (r *GormExportScheduleRepository) UpdateRunTimes(ctx context.Context, id uuid.UUID, lastRunAt, nextRunAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&export.ExportSchedule{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"last_run_at": lastRunAt,
			"next_run_at": nextRunAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return export.ErrScheduleNotFound
	}
	return nil
}

// Delete removes a schedule. Runs are kept as history.
func (r *GormExportScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&export.ExportSchedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return export.ErrScheduleNotFound
	}
	return nil
}

var _ export.ScheduleRepository = (*GormExportScheduleRepository)(nil)
