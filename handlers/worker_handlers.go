package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clipmaster/models"
	"clipmaster/utils"
)

// CompleteClipRequest is the worker's success report.
type CompleteClipRequest struct {
	ArtifactURI string `json:"artifact_uri" validate:"required,url"`
	models.ClipMetadata
}

// FailClipRequest is the worker's failure report.
type FailClipRequest struct {
	Reason string `json:"reason"`
}

// ReportClipMetadata godoc
// @Summary Report clip metadata (worker)
// @Tags internal
// @Accept json
// @Produce json
// @Param X-Service-Key header string true "Worker service key"
// @Param clipId path string true "Clip ID"
// @Param request body models.ClipMetadata true "Metadata"
// @Success 200 {object} ClipSuccessResponse
// @Failure 409 {object} ErrorResponse "Clip already finalized"
// @Failure 422 {object} ErrorResponse
// @Router /internal/v1/clips/{clipId}/metadata [post]
func (h *ApplicationHandler) ReportClipMetadata(c *fiber.Ctx) error {
	id, ok := h.clipIDParam(c)
	if !ok {
		return nil
	}

	var meta models.ClipMetadata
	if err := c.BodyParser(&meta); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse JSON")
	}

	clip, err := h.Finalizer.ReportMetadata(c.UserContext(), id, meta)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, clip)
}

// CompleteClip godoc
// @Summary Mark a clip completed (worker)
// @Tags internal
// @Accept json
// @Produce json
// @Param X-Service-Key header string true "Worker service key"
// @Param clipId path string true "Clip ID"
// @Param request body CompleteClipRequest true "Final artifact and metadata"
// @Success 200 {object} ClipSuccessResponse
// @Failure 409 {object} ErrorResponse "Clip already finalized"
// @Failure 422 {object} ErrorResponse
// @Router /internal/v1/clips/{clipId}/complete [post]
func (h *ApplicationHandler) CompleteClip(c *fiber.Ctx) error {
	id, ok := h.clipIDParam(c)
	if !ok {
		return nil
	}

	req := new(CompleteClipRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return utils.RespondWithErrorDetails(c, fiber.StatusUnprocessableEntity, "Validation failed", utils.FormatValidationErrors(err))
	}

	clip, err := h.Finalizer.Complete(c.UserContext(), id, req.ArtifactURI, req.ClipMetadata)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, clip)
}

// FailClip godoc
// @Summary Mark a clip failed (worker)
// @Tags internal
// @Accept json
// @Produce json
// @Param X-Service-Key header string true "Worker service key"
// @Param clipId path string true "Clip ID"
// @Param request body FailClipRequest false "Failure reason"
// @Success 200 {object} ClipSuccessResponse
// @Failure 409 {object} ErrorResponse "Clip already finalized"
// @Router /internal/v1/clips/{clipId}/fail [post]
func (h *ApplicationHandler) FailClip(c *fiber.Ctx) error {
	id, ok := h.clipIDParam(c)
	if !ok {
		return nil
	}

	req := new(FailClipRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse JSON")
		}
	}

	clip, err := h.Finalizer.Fail(c.UserContext(), id, req.Reason)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, clip)
}

func (h *ApplicationHandler) clipIDParam(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("clipId"))
	if err != nil {
		_ = utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid clip ID format")
		return uuid.Nil, false
	}
	return id, true
}
