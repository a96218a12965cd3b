package handlers

import (
	"net/http"

	"github.com/Cue77/medilink/config"
	"github.com/Cue77/medilink/models"
	"github.com/Cue77/medilink/services"
	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	threads     *services.ThreadService
	attachments *services.AttachmentService
	config      *config.Config
}

func NewMessageHandler(threads *services.ThreadService, attachments *services.AttachmentService, cfg *config.Config) *MessageHandler {
	return &MessageHandler{
		threads:     threads,
		attachments: attachments,
		config:      cfg,
	}
}

// GetThread loads the conversation with the counterpart named in the query
// and marks their unread rows read. An empty thread and a thread made
// unreachable by a counterpart display-name change look identical here.
func (h *MessageHandler) GetThread(c *gin.Context) {
	viewer := viewerFromContext(c)

	contact := models.Contact{
		ID:   c.Query("contact_id"),
		Name: c.Query("contact_name"),
		Role: c.Query("contact_role"),
	}
	if contact.ID == "" || contact.Name == "" {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "contact_id and contact_name are required",
		})
		return
	}

	messages, err := h.threads.Thread(c.Request.Context(), viewer, contact)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to fetch messages",
		})
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Data:    messages,
	})
}

// SendMessage persists a message for the selected counterpart. On a store
// failure the optimistic entry comes back in the failed state so the caller
// can retry it; nothing is rolled back server-side.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	viewer := viewerFromContext(c)

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}
	if req.Text == "" && req.AttachmentURL == nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Message text or attachment is required",
		})
		return
	}

	contact := models.Contact{
		ID:   req.ContactID,
		Name: req.ContactName,
		Role: req.ContactRole,
	}

	var att *models.Attachment
	if req.AttachmentURL != nil {
		kind := "file"
		if req.AttachmentType != nil {
			kind = *req.AttachmentType
		}
		att = &models.Attachment{URL: *req.AttachmentURL, Kind: kind}
	}

	out, err := h.threads.Send(c.Request.Context(), viewer, contact, req.Text, att)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to send",
			Data:    out,
		})
		return
	}

	c.JSON(http.StatusCreated, models.Response{
		Success: true,
		Message: "Message sent securely",
		Data:    out,
	})
}

// UploadAttachment stores a multipart file in the attachment bucket and
// returns its public URL for a subsequent send.
func (h *MessageHandler) UploadAttachment(c *gin.Context) {
	userID := c.GetString("user_id")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "file is required",
		})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	att, err := h.attachments.Upload(c.Request.Context(), userID, header.Filename, contentType, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to upload file",
		})
		return
	}

	c.JSON(http.StatusCreated, models.Response{
		Success: true,
		Data:    att,
	})
}
