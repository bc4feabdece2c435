package handler

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	importapp "github.com/erp/interchange/internal/application/import"
	"github.com/erp/interchange/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadSize caps uploaded CSV files (10MB)
const DefaultMaxUploadSize int64 = 10 * 1024 * 1024

var allowedUploadTypes = map[string]bool{
	"":                         true,
	"text/csv":                 true,
	"text/plain":               true,
	"application/csv":          true,
	"application/octet-stream": true,
	"application/vnd.ms-excel": true,
}

// ImportHandler serves the preview and commit endpoints
type ImportHandler struct {
	BaseHandler
	service       *importapp.ImportService
	maxUploadSize int64
}

// NewImportHandler creates a new ImportHandler. A non-positive limit
// selects DefaultMaxUploadSize.
func NewImportHandler(service *importapp.ImportService, maxUploadSize int64) *ImportHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &ImportHandler{service: service, maxUploadSize: maxUploadSize}
}

// Preview validates an uploaded file without writing to the catalog
func (h *ImportHandler) Preview(c *gin.Context) {
	req, file, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPreviewResponse(result))
}

// Commit applies every valid row of an uploaded file
func (h *ImportHandler) Commit(c *gin.Context) {
	req, file, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	summary, err := h.service.Commit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCommitResponse(summary))
}

// readUpload extracts the file part and mapping fields, replying with an
// error response when the upload is unusable
func (h *ImportHandler) readUpload(c *gin.Context) (importapp.ImportRequest, multipart.File, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return importapp.ImportRequest{}, nil, false
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "file is required")
		return importapp.ImportRequest{}, nil, false
	}

	if header.Size > h.maxUploadSize {
		file.Close()
		h.tooLarge(c)
		return importapp.ImportRequest{}, nil, false
	}
	if !allowedUploadTypes[mediaType(header.Header.Get("Content-Type"))] {
		file.Close()
		h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeFormat, "file must be a CSV document")
		return importapp.ImportRequest{}, nil, false
	}

	var form dto.ImportForm
	if err := c.ShouldBind(&form); err != nil {
		file.Close()
		h.BadRequest(c, err.Error())
		return importapp.ImportRequest{}, nil, false
	}

	return importapp.ImportRequest{
		File: file,
		Mapping: importapp.MappingRef{
			Inline:     form.Mapping,
			TemplateID: form.TemplateID,
		},
	}, file, true
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}

func (h *ImportHandler) tooLarge(c *gin.Context) {
	h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge,
		fmt.Sprintf("file exceeds maximum size of %d bytes", h.maxUploadSize))
}
