package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"clipmaster/internal/clipstore"
	"clipmaster/internal/download"
	"clipmaster/internal/finalize"
	"clipmaster/internal/ingest"
	"clipmaster/internal/source"
	"clipmaster/middleware"
	"clipmaster/utils"
)

// ErrorResponse defines a common structure for error responses.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{source.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},
	{source.ErrUnsupportedExtension, fiber.StatusUnprocessableEntity},
	{source.ErrMalformedURL, fiber.StatusUnprocessableEntity},
	{source.ErrUnsupportedPlatform, fiber.StatusUnprocessableEntity},
	{ingest.ErrUploadFailed, fiber.StatusBadGateway},
	{ingest.ErrRepositoryWriteFailed, fiber.StatusServiceUnavailable},
	{download.ErrClipNotReady, fiber.StatusConflict},
	{download.ErrDownloadFailed, fiber.StatusBadGateway},
	{clipstore.ErrNotFound, fiber.StatusNotFound},
	{clipstore.ErrClipFinalized, fiber.StatusConflict},
	{clipstore.ErrInvalidFinalization, fiber.StatusUnprocessableEntity},
	{finalize.ErrInvalidReport, fiber.StatusUnprocessableEntity},
}

// statusFor maps a domain error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return fiber.StatusInternalServerError
}

// respondError logs err and writes the error envelope. Known errors are
// returned verbatim with their cause; anything else is hidden behind a
// generic message.
func (h *ApplicationHandler) respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	entry := h.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.Locals(middleware.RequestIDKey),
		"status_code": status,
	})
	message := err.Error()
	switch {
	case status >= 500:
		entry.Error("Request failed")
		if status == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
	default:
		entry.Debug("Request rejected")
	}
	return utils.RespondWithError(c, status, message)
}

// ErrorHandler is the fiber error handler. Errors that escape a handler or
// are raised by fiber itself (unknown route, oversized body) get the same
// envelope as handler responses.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}
		if status >= 500 {
			logger.WithError(err).WithField("request_id", c.Locals(middleware.RequestIDKey)).Error("Unhandled error")
		}
		return utils.RespondWithError(c, status, message)
	}
}
