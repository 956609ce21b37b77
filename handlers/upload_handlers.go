package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clipmaster/internal/ingest"
	"clipmaster/internal/objectstore"
	"clipmaster/internal/source"
	"clipmaster/middleware"
	"clipmaster/utils"
)

// UploadIDHeader lets a client name an upload so it can poll its progress.
const UploadIDHeader = "X-Upload-ID"

var validate = validator.New()

// ImportClipRequest defines the expected request body for importing a hosted video.
type ImportClipRequest struct {
	URL string `json:"url" validate:"required"`
}

// CreatedClip is returned when a submission was accepted.
type CreatedClip struct {
	ID uuid.UUID `json:"id"`
}

// CreatedClipResponse wraps CreatedClip in the success envelope.
type CreatedClipResponse struct {
	Status string      `json:"status"`
	Data   CreatedClip `json:"data"`
}

// ProgressResponse wraps an upload progress snapshot.
type ProgressResponse struct {
	Status string                       `json:"status"`
	Data   objectstore.ProgressSnapshot `json:"data"`
}

// UploadClip godoc
// @Summary Upload a video file
// @Description Stores the file and creates a clip in the processing state. Allowed extensions are mp4, mov, avi and mkv, up to 500 MiB.
// @Tags clips
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Video file"
// @Param X-Upload-ID header string false "Client-chosen id for progress polling"
// @Success 201 {object} CreatedClipResponse
// @Failure 400 {object} ErrorResponse "No file in the form"
// @Failure 413 {object} ErrorResponse "File too large"
// @Failure 422 {object} ErrorResponse "Unsupported extension"
// @Failure 502 {object} ErrorResponse "Upload to storage failed"
// @Failure 503 {object} ErrorResponse "Clip record could not be written"
// @Router /clips/upload [post]
func (h *ApplicationHandler) UploadClip(c *fiber.Ctx) error {
	owner, _ := middleware.UserID(c)

	fh, err := c.FormFile("file")
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Missing multipart field 'file'")
	}

	f, err := fh.Open()
	if err != nil {
		h.Logger.WithError(err).Error("Error opening uploaded file")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error reading uploaded file")
	}
	defer f.Close()

	in := source.FileInput(fh.Filename, fh.Size, fh.Header.Get(fiber.HeaderContentType), f)
	id, err := h.Ingester.Ingest(c.UserContext(), owner, in, ingest.WithUploadID(c.Get(UploadIDHeader)))
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusCreated, CreatedClip{ID: id})
}

// ImportClip godoc
// @Summary Import a hosted video by URL
// @Description Creates a clip from a link on a supported platform (YouTube, Twitch, Kick, Vimeo, Dailymotion, Facebook, Instagram, TikTok).
// @Tags clips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ImportClipRequest true "Video link"
// @Success 201 {object} CreatedClipResponse
// @Failure 400 {object} ErrorResponse "Body is not valid JSON or url is missing"
// @Failure 422 {object} ErrorResponse "Malformed URL or unsupported platform"
// @Failure 503 {object} ErrorResponse "Clip record could not be written"
// @Router /clips/import [post]
func (h *ApplicationHandler) ImportClip(c *fiber.Ctx) error {
	owner, _ := middleware.UserID(c)

	req := new(ImportClipRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse JSON")
	}
	req.URL = utils.SanitizeInput(req.URL)
	if err := validate.Struct(req); err != nil {
		return utils.RespondWithErrorDetails(c, fiber.StatusBadRequest, "Validation failed", utils.FormatValidationErrors(err))
	}

	id, err := h.Ingester.Ingest(c.UserContext(), owner, source.URLInput(req.URL))
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusCreated, CreatedClip{ID: id})
}

// UploadProgress godoc
// @Summary Poll upload progress
// @Description Advisory progress of an upload started with the same X-Upload-ID. Percent stays below 100 until storage confirms.
// @Tags uploads
// @Produce json
// @Security BearerAuth
// @Param uploadId path string true "Upload ID"
// @Success 200 {object} ProgressResponse
// @Failure 404 {object} ErrorResponse
// @Router /uploads/{uploadId}/progress [get]
func (h *ApplicationHandler) UploadProgress(c *fiber.Ctx) error {
	owner, _ := middleware.UserID(c)

	snap, ok := h.Uploads.Get(owner, c.Params("uploadId"))
	if !ok {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Upload not found")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, snap)
}
