package handlers

import (
	"github.com/Cue77/medilink/models"
	"github.com/gin-gonic/gin"
)

func viewerFromContext(c *gin.Context) models.Viewer {
	return models.Viewer{
		ID:       c.GetString("user_id"),
		FullName: c.GetString("full_name"),
		Role:     c.GetString("role"),
	}
}
