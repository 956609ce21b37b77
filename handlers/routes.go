package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clipmaster/internal/auth"
	"clipmaster/middleware"
)

// RegisterRoutes mounts the public API under /api/v1 and, when serviceKey is
// set, the worker routes under /internal/v1.
func (h *ApplicationHandler) RegisterRoutes(app *fiber.App, idp auth.IdentityProvider, serviceKey string) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "clipmaster is healthy",
		})
	})

	apiV1 := app.Group("/api/v1", middleware.RequireUser(idp))

	clips := apiV1.Group("/clips")
	clips.Get("", h.ListClips)
	clips.Post("/upload", h.UploadClip)
	clips.Post("/import", h.ImportClip)
	clips.Get("/events", h.StreamClipEvents)
	clips.Get("/:clipId", h.GetClip)
	clips.Get("/:clipId/download", h.DownloadClip)

	apiV1.Get("/uploads/:uploadId/progress", h.UploadProgress)

	if serviceKey == "" {
		h.Logger.Warn("Worker service key not set; internal routes disabled")
		return
	}
	internal := app.Group("/internal/v1", middleware.RequireServiceKey(serviceKey))
	internal.Post("/clips/:clipId/metadata", h.ReportClipMetadata)
	internal.Post("/clips/:clipId/complete", h.CompleteClip)
	internal.Post("/clips/:clipId/fail", h.FailClip)
}
