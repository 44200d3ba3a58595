package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// heartbeat keeps idle streams alive and detects gone clients.
var heartbeat = 15 * time.Second

// stream pushes the forecast from ?from= as server-sent events: one
// "forecast" event with the current snapshot, then one per committed change.
func (h *Handler) stream(c *fiber.Ctx) error {
	from, err := h.fromQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	sub, err := h.service.Subscribe(from)
	if err != nil {
		h.log.Errorf("subscribe failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to open forecast stream")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	log := h.log.WithField("from", from)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Cancel()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		seq := 0
		for {
			select {
			case snap, ok := <-sub.Updates():
				if !ok {
					return
				}
				payload, err := json.Marshal(snap)
				if err != nil {
					log.Errorf("encoding snapshot failed: %v", err)
					return
				}
				seq++
				fmt.Fprintf(w, "id: %d\nevent: forecast\ndata: %s\n\n", seq, payload)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}

			if err := w.Flush(); err != nil {
				log.Debugf("stream closed: %v", err)
				return
			}
		}
	}))
	return nil
}
