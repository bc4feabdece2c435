package handler

import (
	"net/http"
	"strconv"

	exportapp "github.com/erp/interchange/internal/application/export"
	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/erp/interchange/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ExportHandler serves on-demand catalog downloads
type ExportHandler struct {
	BaseHandler
	service *exportapp.ExportService
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(service *exportapp.ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportProducts streams the filtered catalog as a CSV attachment
func (h *ExportHandler) ExportProducts(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.HandleValidation(c, err)
		return
	}

	file, err := h.service.Export(c.Request.Context(), catalog.ProductFilter{
		Category:     q.Category,
		NameContains: q.Query,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("X-Export-Rows", strconv.Itoa(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
