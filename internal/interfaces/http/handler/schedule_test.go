package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/erp/interchange/internal/interfaces/http/dto"
	"github.com/erp/interchange/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scheduleEnvelope struct {
	Data dto.ScheduleResponse `json:"data"`
}

type runEnvelope struct {
	Data dto.RunResponse `json:"data"`
}

type runListEnvelope struct {
	Data []dto.RunResponse `json:"data"`
}

func nightlyS3() map[string]any {
	return map[string]any{
		"name": "nightly",
		"cron": "0 2 * * *",
		"destination": map[string]any{
			"kind":   "s3",
			"config": map[string]any{"bucket": "exports", "prefix": "catalog"},
		},
		"retry": map[string]any{"enabled": false},
	}
}

func (f *apiFixture) createSchedule(t *testing.T, body map[string]any) dto.ScheduleResponse {
	t.Helper()
	w := f.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/exports", body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.JSONBodyAs[scheduleEnvelope](t, w).Data
}

func TestScheduleHandler_CRUD(t *testing.T) {
	f := newAPIFixture(t, 0)

	created := f.createSchedule(t, nightlyS3())
	assert.Equal(t, "nightly", created.Name)
	assert.Equal(t, export.DestinationS3, created.Destination.Kind)
	assert.True(t, created.Enabled)
	assert.NotNil(t, created.NextRunAt)

	path := "/api/v1/exports/" + created.ID.String()

	w := f.do(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, testutil.JSONBodyAs[scheduleEnvelope](t, w).Data.ID)

	body := nightlyS3()
	body["cron"] = "30 6 * * 1"
	body["enabled"] = false
	w = f.do(testutil.NewJSONRequest(t, http.MethodPut, path, body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := testutil.JSONBodyAs[scheduleEnvelope](t, w).Data
	assert.Equal(t, "30 6 * * 1", updated.Cron)
	assert.False(t, updated.Enabled)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.JSONBody(t, w)["data"].([]any), 1)

	w = f.do(httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, path, nil))
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
}

func TestScheduleHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		code   string
	}{
		{
			name:   "invalid cron",
			mutate: func(b map[string]any) { b["cron"] = "every night" },
			code:   dto.ErrCodeInvalidCron,
		},
		{
			name: "unsupported destination",
			mutate: func(b map[string]any) {
				b["destination"] = map[string]any{"kind": "ftp", "config": map[string]any{}}
			},
			code: dto.ErrCodeInvalidDestination,
		},
		{
			name: "email without recipients",
			mutate: func(b map[string]any) {
				b["destination"] = map[string]any{"kind": "email", "config": map[string]any{}}
			},
			code: dto.ErrCodeInvalidDestination,
		},
		{
			name: "retry attempts out of range",
			mutate: func(b map[string]any) {
				b["retry"] = map[string]any{"enabled": true, "maxAttempts": 0, "backoffSeconds": 60}
			},
			code: dto.ErrCodeInvalidRetryPolicy,
		},
		{
			name:   "missing name",
			mutate: func(b map[string]any) { delete(b, "name") },
			code:   dto.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, 0)
			body := nightlyS3()
			tt.mutate(body)
			w := f.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/exports", body))
			testutil.AssertErrorResponse(t, w, http.StatusBadRequest, tt.code)
		})
	}
}

func TestScheduleHandler_Trigger(t *testing.T) {
	f := newAPIFixture(t, 0)
	f.seed(t, "Desk Lamp", "lighting", 20)
	s := f.createSchedule(t, nightlyS3())

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/exports/trigger/"+s.ID.String(), nil))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	run := testutil.JSONBodyAs[runEnvelope](t, w).Data
	assert.Equal(t, s.ID, run.ScheduleID)
	assert.Equal(t, 1, run.Attempt)
	assert.Equal(t, string(export.TriggerManual), run.Trigger)
	assert.Equal(t, string(export.RunStatusSucceeded), run.Status)
	assert.Equal(t, 1, run.RowCount)
	assert.True(t, strings.HasPrefix(run.Location, "s3://exports/catalog/"), run.Location)

	_, stored := f.objects.Get(run.Location)
	assert.True(t, stored)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports/runs/"+run.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, run.ID, testutil.JSONBodyAs[runEnvelope](t, w).Data.ID)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports/"+s.ID.String()+"/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	runs := testutil.JSONBodyAs[runListEnvelope](t, w).Data
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestScheduleHandler_TriggerWhileRunning(t *testing.T) {
	f := newAPIFixture(t, 0)
	s := f.createSchedule(t, nightlyS3())
	f.holdScheduleLock(t, s.ID)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/exports/trigger/"+s.ID.String(), nil))
	testutil.AssertErrorResponse(t, w, http.StatusConflict, dto.ErrCodeAlreadyRunning)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports/"+s.ID.String()+"/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, testutil.JSONBodyAs[runListEnvelope](t, w).Data, "a rejected trigger records no run")
}

func TestScheduleHandler_TriggerUnknownSchedule(t *testing.T) {
	f := newAPIFixture(t, 0)
	w := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/exports/trigger/"+testutil.NewTestUUID("gone").String(), nil))
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
}

func TestScheduleHandler_RetryRun(t *testing.T) {
	f := newAPIFixture(t, 0)
	f.seed(t, "Desk Lamp", "lighting", 20)
	s := f.createSchedule(t, nightlyS3())

	f.objects.FailWith = errors.New("bucket unreachable")
	w := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/exports/trigger/"+s.ID.String(), nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	failed := testutil.JSONBodyAs[runEnvelope](t, w).Data
	require.Equal(t, string(export.RunStatusFailed), failed.Status)
	assert.Contains(t, failed.Error, "bucket unreachable")

	f.objects.FailWith = nil
	w = f.do(httptest.NewRequest(http.MethodPost, "/api/v1/exports/runs/"+failed.ID.String()+"/retry", nil))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	retried := testutil.JSONBodyAs[runEnvelope](t, w).Data
	assert.Equal(t, failed.FiringID, retried.FiringID)
	assert.Equal(t, 2, retried.Attempt)
	assert.Equal(t, string(export.RunStatusSucceeded), retried.Status)

	t.Run("succeeded runs are not retryable", func(t *testing.T) {
		w := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/exports/runs/"+retried.ID.String()+"/retry", nil))
		testutil.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState)
	})

	t.Run("superseded attempts are not retryable", func(t *testing.T) {
		w := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/exports/runs/"+failed.ID.String()+"/retry", nil))
		testutil.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState)
	})

	t.Run("history is newest first", func(t *testing.T) {
		w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports/"+s.ID.String()+"/runs", nil))
		require.Equal(t, http.StatusOK, w.Code)
		runs := testutil.JSONBodyAs[runListEnvelope](t, w).Data
		require.Len(t, runs, 2)
		assert.Equal(t, retried.ID, runs[0].ID)
		assert.Equal(t, failed.ID, runs[1].ID)
	})
}

func TestScheduleHandler_RunNotFound(t *testing.T) {
	f := newAPIFixture(t, 0)
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports/runs/"+testutil.NewTestUUID("run").String(), nil))
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
}
