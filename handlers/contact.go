package handlers

import (
	"net/http"

	"github.com/Cue77/medilink/config"
	"github.com/Cue77/medilink/models"
	"github.com/Cue77/medilink/services"
	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	threads *services.ThreadService
	config  *config.Config
}

func NewContactHandler(threads *services.ThreadService, cfg *config.Config) *ContactHandler {
	return &ContactHandler{
		threads: threads,
		config:  cfg,
	}
}

// GetContacts lists the viewer's messageable counterparts, derived from
// approved and completed appointments.
func (h *ContactHandler) GetContacts(c *gin.Context) {
	viewer := viewerFromContext(c)

	contacts, err := h.threads.Contacts(c.Request.Context(), viewer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to fetch contacts",
		})
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Data:    contacts,
	})
}
