package handler

import (
	importapp "github.com/erp/interchange/internal/application/import"
	"github.com/erp/interchange/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// TemplateHandler serves mapping template CRUD
type TemplateHandler struct {
	BaseHandler
	service *importapp.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(service *importapp.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// List returns every template ordered by name
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTemplateListResponse(templates))
}

// Get returns one template
func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}
	tpl, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTemplateResponse(tpl))
}

// Create stores a new template
func (h *TemplateHandler) Create(c *gin.Context) {
	var req dto.TemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tpl, err := h.service.Create(c.Request.Context(), req.Name, req.Mapping)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewTemplateResponse(tpl))
}

// Update replaces the name and mapping of a template
func (h *TemplateHandler) Update(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}
	var req dto.TemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tpl, err := h.service.Update(c.Request.Context(), id, req.Name, req.Mapping)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTemplateResponse(tpl))
}

// Delete removes a template
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
