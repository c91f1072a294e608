package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
)

const keepAliveInterval = 25 * time.Second

// Subscriber is the part of the broadcast bus the event stream needs
type Subscriber interface {
	Subscribe(types ...broadcast.EventType) (broadcast.SubscriberID, <-chan broadcast.Event)
	Unsubscribe(id broadcast.SubscriberID)
}

type EventHandler struct {
	bus Subscriber
	log *logrus.Entry
}

// Stream serves server-sent events until the client disconnects or the bus
// stops. ?types=a,b limits the stream to those event types.
func (h *EventHandler) Stream(c *gin.Context) {
	var types []broadcast.EventType
	for _, t := range strings.Split(c.Query("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, broadcast.EventType(t))
		}
	}

	id, events := h.bus.Subscribe(types...)
	defer h.bus.Unsubscribe(id)

	log := h.log.WithField("subscriber", id)
	log.Debug("event stream opened")
	defer log.Debug("event stream closed")

	// the server's write timeout would otherwise cut long-lived streams
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Render(-1, sse.Event{Event: "ping", Data: time.Now().UTC().Format(time.RFC3339)})
		case evt, open := <-events:
			if !open {
				return
			}
			c.Render(-1, sse.Event{Id: evt.ID, Event: string(evt.Type), Data: evt})
		}
		c.Writer.Flush()
	}
}
