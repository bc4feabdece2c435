package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/interchange/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit returns a middleware that limits request body size. Requests
// that declare a larger body are rejected up front; streamed bodies fail
// when the handler reads past the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return BodyLimitWithUploads(maxBytes, 0)
}

// BodyLimitWithUploads is BodyLimit with a separate ceiling for
// multipart/form-data requests. File uploads get maxUploadBytes plus
// maxBytes of room for the other form fields; the upload handler enforces
// the exact file size itself. A zero maxUploadBytes applies maxBytes to
// every request.
func BodyLimitWithUploads(maxBytes, maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if maxUploadBytes > 0 && strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			limit = maxUploadBytes + maxBytes
		}

		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeFileTooLarge,
				"Request body exceeds maximum allowed size",
				c.GetString(RequestIDContextKey),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
