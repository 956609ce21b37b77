package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"clipmaster/middleware"
)

// StreamClipEvents godoc
// @Summary Stream clip changes
// @Description Server-Sent Events stream of the caller's clip changes (event "clip_change"). Each event is a hint to re-list; nothing is replayed after reconnecting. Pass the session as access_token when the client cannot set headers.
// @Tags clips
// @Produce text/event-stream
// @Security BearerAuth
// @Param access_token query string false "Session token for EventSource clients"
// @Success 200 {object} models.ChangeEvent
// @Router /clips/events [get]
func (h *ApplicationHandler) StreamClipEvents(c *fiber.Ctx) error {
	owner, _ := middleware.UserID(c)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The stream outlives the handler, so it gets its own context.
	ctx, cancel := context.WithCancel(context.Background())
	sub := h.Hub.Subscribe(ctx, owner)
	log := h.Logger.WithField("user_id", owner)
	keepalive := h.Keepalive
	if keepalive <= 0 {
		keepalive = 25 * time.Second
	}

	log.Debug("Event stream opened")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer func() {
			entry := log.WithField("dropped_events", sub.Dropped())
			if sub.Dropped() > 0 {
				entry.Warn("Event stream closed after dropping events")
				return
			}
			entry.Debug("Event stream closed")
		}()

		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()

		fmt.Fprint(w, "retry: 3000\n: connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					log.WithError(err).Error("Cannot encode change event")
					continue
				}
				fmt.Fprintf(w, "event: clip_change\ndata: %s\n\n", data)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			// A failed flush means the client is gone.
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}
