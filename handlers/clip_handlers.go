package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clipmaster/middleware"
	"clipmaster/models"
	"clipmaster/utils"
)

// ClipSuccessResponse defines the structure for a successful response for a single clip.
type ClipSuccessResponse struct {
	Status string      `json:"status"`
	Data   models.Clip `json:"data"`
}

// ClipListSuccessResponse defines the structure for a successful response when listing clips.
type ClipListSuccessResponse struct {
	Status string        `json:"status"`
	Data   []models.Clip `json:"data"`
}

// ListClips godoc
// @Summary List the caller's clips
// @Description Returns every clip owned by the caller, newest first.
// @Tags clips
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ClipListSuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /clips [get]
func (h *ApplicationHandler) ListClips(c *fiber.Ctx) error {
	owner, _ := middleware.UserID(c)

	clips, err := h.Clips.ListByOwner(c.UserContext(), owner)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, clips)
}

// GetClip godoc
// @Summary Get one clip
// @Tags clips
// @Produce json
// @Security BearerAuth
// @Param clipId path string true "Clip ID"
// @Success 200 {object} ClipSuccessResponse
// @Failure 400 {object} ErrorResponse "Malformed clip id"
// @Failure 404 {object} ErrorResponse "No such clip for this user"
// @Router /clips/{clipId} [get]
func (h *ApplicationHandler) GetClip(c *fiber.Ctx) error {
	clip, err := h.ownedClip(c)
	if err != nil {
		return err
	}
	if clip == nil {
		return nil
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, clip)
}

// DownloadClip godoc
// @Summary Download a finished clip
// @Description Streams the artifact of a completed clip as an attachment named after its title.
// @Tags clips
// @Produce video/mp4
// @Security BearerAuth
// @Param clipId path string true "Clip ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Clip is not completed"
// @Failure 502 {object} ErrorResponse "Artifact could not be fetched"
// @Router /clips/{clipId}/download [get]
func (h *ApplicationHandler) DownloadClip(c *fiber.Ctx) error {
	clip, err := h.ownedClip(c)
	if err != nil || clip == nil {
		return err
	}

	art, err := h.Downloads.Download(c.UserContext(), clip)
	if err != nil {
		return h.respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, art.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		asciiFileName(art.FileName), url.PathEscape(art.FileName)))
	if art.Size >= 0 {
		return c.SendStream(art, int(art.Size))
	}
	return c.SendStream(art)
}

// ownedClip loads the clip named by :clipId for the caller. When it returns
// a nil clip and nil error the response has already been written.
func (h *ApplicationHandler) ownedClip(c *fiber.Ctx) (*models.Clip, error) {
	owner, _ := middleware.UserID(c)

	id, err := uuid.Parse(c.Params("clipId"))
	if err != nil {
		return nil, utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid clip ID format")
	}

	clip, err := h.Clips.Get(c.UserContext(), owner, id)
	if err != nil {
		return nil, h.respondError(c, err)
	}
	return clip, nil
}

func asciiFileName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}
