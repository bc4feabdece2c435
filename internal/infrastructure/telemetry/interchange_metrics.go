package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when metrics are built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// InterchangeMetrics counts import outcomes and export runs.
type InterchangeMetrics struct {
	importRows  *Counter
	exportRuns  *Counter
	exportRows  *Counter
	runDuration *Histogram
}

// NewInterchangeMetrics registers the service's instruments on meter.
func NewInterchangeMetrics(meter metric.Meter) (*InterchangeMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &InterchangeMetrics{}
	var err error
	if m.importRows, err = NewCounter(meter,
		"interchange_import_rows_total", "Rows processed by import commits", "{rows}"); err != nil {
		return nil, err
	}
	if m.exportRuns, err = NewCounter(meter,
		"interchange_export_runs_total", "Export runs that reached a terminal state", "{runs}"); err != nil {
		return nil, err
	}
	if m.exportRows, err = NewCounter(meter,
		"interchange_export_rows_total", "Rows written by successful export runs", "{rows}"); err != nil {
		return nil, err
	}
	if m.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "interchange_export_run_duration_seconds",
		Description: "Wall time of export runs",
		Unit:        "s",
		Boundaries:  ExportDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordImport adds the outcome counts of one commit. Safe on a nil receiver.
func (m *InterchangeMetrics) RecordImport(ctx context.Context, created, updated, skipped int) {
	if m == nil {
		return
	}
	m.importRows.Add(ctx, int64(created), AttrOutcome.String("created"))
	m.importRows.Add(ctx, int64(updated), AttrOutcome.String("updated"))
	m.importRows.Add(ctx, int64(skipped), AttrOutcome.String("skipped"))
}

// RecordExportRun records one finished run. Safe on a nil receiver.
func (m *InterchangeMetrics) RecordExportRun(ctx context.Context, status, trigger, destination string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrRunStatus.String(status),
		AttrTrigger.String(trigger),
		AttrDestination.String(destination),
	}
	m.exportRuns.Inc(ctx, attrs...)
	m.runDuration.RecordDuration(ctx, elapsed, attrs...)
	if rows > 0 {
		m.exportRows.Add(ctx, int64(rows), AttrDestination.String(destination))
	}
}
