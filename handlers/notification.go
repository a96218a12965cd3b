package handlers

import (
	"io"

	"github.com/Cue77/medilink/config"
	"github.com/Cue77/medilink/models"
	"github.com/Cue77/medilink/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type NotificationHandler struct {
	store  *services.SupabaseStore
	feed   services.FeedSubscriber
	hub    *services.NoticeHub
	config *config.Config
	log    zerolog.Logger
}

func NewNotificationHandler(store *services.SupabaseStore, feed services.FeedSubscriber, hub *services.NoticeHub, cfg *config.Config, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		store:  store,
		feed:   feed,
		hub:    hub,
		config: cfg,
		log:    log,
	}
}

// Stream is the UI's notification surface: an SSE stream of notice
// descriptors. Each stream owns one delivery session (change feed with
// polling fallback); when the client disconnects the session is torn down and
// subsequent notices for this surface are dropped.
func (h *NotificationHandler) Stream(c *gin.Context) {
	viewer := viewerFromContext(c)

	notices, unsubscribe := h.hub.Subscribe(viewer.ID)
	defer unsubscribe()

	newPoller := func(onMessage func(models.MessageEvent), onAppointment func(models.AppointmentEvent)) services.FallbackPoller {
		return services.NewPoller(h.store, viewer, h.config.PollInterval, onMessage, onAppointment, h.log)
	}

	session := services.NewSession(viewer, h.feed, newPoller, h.hub, h.log)
	if err := session.Start(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("session start failed")
	}
	defer session.Close()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-notices:
			if !ok {
				return false
			}
			c.SSEvent("notice", n)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
