package export

import (
	"strings"
	"time"

	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/erp/interchange/internal/domain/shared"
)

const maxScheduleNameLength = 100

// Filter narrows the catalog snapshot a schedule exports
type Filter struct {
	Category     string `json:"category,omitempty" gorm:"type:varchar(100)"`
	NameContains string `json:"nameContains,omitempty" gorm:"type:varchar(255)"`
}

// ProductFilter converts the schedule filter to a catalog query
func (f Filter) ProductFilter() catalog.ProductFilter {
	return catalog.ProductFilter{Category: f.Category, NameContains: f.NameContains}
}

// ExportSchedule is a recurring export job
type ExportSchedule struct {
	shared.BaseEntity
	Name        string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_export_schedules_name"`
	Cron        string      `gorm:"type:varchar(100);not null"`
	Destination Destination `gorm:"serializer:json;type:text;not null"`
	Retry       RetryPolicy `gorm:"embedded;embeddedPrefix:retry_"`
	Filter      Filter      `gorm:"embedded;embeddedPrefix:filter_"`
	Enabled     bool        `gorm:"not null"`
	LastRunAt   *time.Time
	NextRunAt   *time.Time
}

// TableName returns the table name for GORM
func (ExportSchedule) TableName() string {
	return "export_schedules"
}

// ScheduleParams carries the admin-editable settings of a schedule
type ScheduleParams struct {
	Name        string
	Cron        string
	Destination Destination
	Retry       RetryPolicy
	Filter      Filter
	Enabled     bool
}

// NewExportSchedule validates the params and creates a schedule whose next
// run is computed from now
func NewExportSchedule(p ScheduleParams, now time.Time) (*ExportSchedule, error) {
	s := &ExportSchedule{BaseEntity: shared.NewBaseEntityAt(now)}
	if err := s.Update(p, now); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces the editable settings. Validation happens before any
// field changes so a rejected update leaves the schedule intact.
func (s *ExportSchedule) Update(p ScheduleParams, now time.Time) error {
	name := strings.TrimSpace(p.Name)
	if name == "" || len([]rune(name)) > maxScheduleNameLength {
		return ErrInvalidScheduleName
	}
	expr := strings.Join(strings.Fields(p.Cron), " ")
	next, err := NextFireTime(expr, now)
	if err != nil {
		return err
	}
	dest := p.Destination.Normalized()
	if err := dest.Validate(); err != nil {
		return err
	}
	if err := p.Retry.Validate(); err != nil {
		return err
	}

	s.Name = name
	s.Cron = expr
	s.Destination = dest
	s.Retry = p.Retry
	s.Filter = Filter{
		Category:     strings.TrimSpace(p.Filter.Category),
		NameContains: strings.TrimSpace(p.Filter.NameContains),
	}
	s.Enabled = p.Enabled
	if s.Enabled {
		s.NextRunAt = &next
	} else {
		s.NextRunAt = nil
	}
	s.Touch(now)
	return nil
}

// MarkRun records a successful firing and advances the next fire time
func (s *ExportSchedule) MarkRun(at time.Time) {
	s.LastRunAt = &at
	s.AdvanceNextRun(at)
}

// AdvanceNextRun recomputes the next fire time after the given instant
func (s *ExportSchedule) AdvanceNextRun(after time.Time) {
	if !s.Enabled {
		s.NextRunAt = nil
		return
	}
	next, err := NextFireTime(s.Cron, after)
	if err != nil {
		s.NextRunAt = nil
		return
	}
	s.NextRunAt = &next
}
