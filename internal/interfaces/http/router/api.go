package router

import (
	"github.com/erp/interchange/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers of the interchange API
type Handlers struct {
	Import   *handler.ImportHandler
	Export   *handler.ExportHandler
	Template *handler.TemplateHandler
	Schedule *handler.ScheduleHandler
	System   *handler.SystemHandler
}

// RegisterAPI mounts the health check at the root and every API route
// under /api/v1. The returned Router lists what was registered.
func RegisterAPI(engine *gin.Engine, h Handlers) *Router {
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))

	r.Register(NewDomainGroup("import", "/import").
		POST("/preview", h.Import.Preview).
		POST("/commit", h.Import.Commit))

	r.Register(NewDomainGroup("export", "/export").
		GET("/products", h.Export.ExportProducts))

	r.Register(NewDomainGroup("templates", "/templates").
		GET("", h.Template.List).
		POST("", h.Template.Create).
		GET("/:id", h.Template.Get).
		PUT("/:id", h.Template.Update).
		DELETE("/:id", h.Template.Delete))

	exports := NewDomainGroup("exports", "/exports").
		GET("", h.Schedule.List).
		POST("", h.Schedule.Create).
		GET("/:id", h.Schedule.Get).
		PUT("/:id", h.Schedule.Update).
		DELETE("/:id", h.Schedule.Delete).
		POST("/trigger/:id", h.Schedule.Trigger).
		GET("/:id/runs", h.Schedule.ListRuns)
	exports.Group("runs", "/runs").
		GET("/:runId", h.Schedule.GetRun).
		POST("/:runId/retry", h.Schedule.RetryRun)
	r.Register(exports)

	r.Register(NewDomainGroup("system", "").
		GET("/ping", h.System.Ping).
		GET("/system/info", h.System.GetSystemInfo))

	r.Setup()
	return r
}
