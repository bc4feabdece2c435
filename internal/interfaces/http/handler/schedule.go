package handler

import (
	exportapp "github.com/erp/interchange/internal/application/export"
	"github.com/erp/interchange/internal/domain/export"
	"github.com/erp/interchange/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ScheduleHandler serves export schedules, manual triggers and run history
type ScheduleHandler struct {
	BaseHandler
	schedules *exportapp.ScheduleService
	executor  *exportapp.RunExecutor
	history   *exportapp.RunHistoryService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(
	schedules *exportapp.ScheduleService,
	executor *exportapp.RunExecutor,
	history *exportapp.RunHistoryService,
) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, executor: executor, history: history}
}

// List returns every schedule ordered by name
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewScheduleListResponse(schedules))
}

// Get returns one schedule
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}
	s, err := h.schedules.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewScheduleResponse(s))
}

// Create registers a new schedule
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.ScheduleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	s, err := h.schedules.Create(c.Request.Context(), req.ToParams())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewScheduleResponse(s))
}

// Update replaces a schedule's definition
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ScheduleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	s, err := h.schedules.Update(c.Request.Context(), id, req.ToParams())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewScheduleResponse(s))
}

// Delete removes a schedule; its run history is kept
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.schedules.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Trigger starts a manual run. It answers 202 with the new run, or 409
// while another run of the schedule is in flight.
func (h *ScheduleHandler) Trigger(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}
	run, err := h.executor.Fire(c.Request.Context(), id, export.TriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, dto.NewRunResponse(run))
}

// ListRuns returns a schedule's runs, newest first
func (h *ScheduleHandler) ListRuns(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}
	runs, err := h.history.ListRuns(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewRunListResponse(runs))
}

// GetRun returns one run
func (h *ScheduleHandler) GetRun(c *gin.Context) {
	id, ok := h.parseUUID(c, "runId")
	if !ok {
		return
	}
	run, err := h.history.GetRun(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewRunResponse(run))
}

// RetryRun re-runs a failed run as a new attempt of the same firing
func (h *ScheduleHandler) RetryRun(c *gin.Context) {
	id, ok := h.parseUUID(c, "runId")
	if !ok {
		return
	}
	run, err := h.history.RetryRun(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, dto.NewRunResponse(run))
}
