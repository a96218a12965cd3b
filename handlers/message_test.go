package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Cue77/medilink/config"
	"github.com/Cue77/medilink/models"
	"github.com/Cue77/medilink/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubThreadStore struct {
	messages   []models.Message
	insertErr  error
	markedRead []int64
	nextID     int64
}

func (s *stubThreadStore) ThreadMessages(_ context.Context, f services.ThreadFilter) ([]models.Message, error) {
	var out []models.Message
	for _, m := range s.messages {
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubThreadStore) InsertMessage(_ context.Context, row map[string]interface{}) (models.Message, error) {
	if s.insertErr != nil {
		return models.Message{}, s.insertErr
	}
	s.nextID++
	m := models.Message{
		ID:          s.nextID,
		UserID:      row["user_id"].(string),
		ContactName: row["contact_name"].(string),
		Text:        row["text"].(string),
		IsFromUser:  row["is_from_user"].(bool),
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *stubThreadStore) MarkMessagesRead(_ context.Context, ids []int64) error {
	s.markedRead = append(s.markedRead, ids...)
	return nil
}

func (s *stubThreadStore) DoctorContactAppointments(_ context.Context, _ string) ([]models.Appointment, error) {
	return nil, nil
}

func (s *stubThreadStore) PatientContactAppointments(_ context.Context, _ string) ([]models.Appointment, error) {
	return nil, nil
}

func (s *stubThreadStore) ProfilesByIDs(_ context.Context, _ []string) ([]models.Profile, error) {
	return nil, nil
}

func messageRouter(store *stubThreadStore, viewer models.Viewer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	threads := services.NewThreadService(store, zerolog.Nop())
	h := NewMessageHandler(threads, nil, cfg)

	r := gin.New()
	r.Use(asViewer(viewer))
	r.GET("/messages", h.GetThread)
	r.POST("/messages", h.SendMessage)
	return r
}

func TestGetThread_RequiresContact(t *testing.T) {
	r := messageRouter(&stubThreadStore{}, testPatient)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/messages?contact_id=doc-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetThread_ReturnsThreadAndMarksRead(t *testing.T) {
	store := &stubThreadStore{
		messages: []models.Message{
			{ID: 1, UserID: "pat-1", ContactName: "A. Smith", IsFromUser: false, Read: false},
			{ID: 2, UserID: "pat-2", ContactName: "A. Smith", IsFromUser: false, Read: false},
		},
	}
	r := messageRouter(store, testPatient)

	w := httptest.NewRecorder()
	q := url.Values{}
	q.Set("contact_id", "doc-1")
	q.Set("contact_name", "A. Smith")
	req := httptest.NewRequest(http.MethodGet, "/messages?"+q.Encode(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":1`)
	assert.NotContains(t, w.Body.String(), `"id":2`, "other patients' threads stay invisible")
	assert.Equal(t, []int64{1}, store.markedRead)
}

func TestSendMessage_RequiresTextOrAttachment(t *testing.T) {
	r := messageRouter(&stubThreadStore{}, testPatient)

	w := httptest.NewRecorder()
	body := `{"contact_id":"doc-1","contact_name":"A. Smith"}`
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessage_Confirmed(t *testing.T) {
	store := &stubThreadStore{}
	r := messageRouter(store, testPatient)

	w := httptest.NewRecorder()
	body := `{"contact_id":"doc-1","contact_name":"A. Smith","text":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"delivery":"confirmed"`)
	assert.Contains(t, w.Body.String(), "Message sent securely")
	assert.Len(t, store.messages, 1)
	assert.Equal(t, "pat-1", store.messages[0].UserID, "patient owns the thread")
}

// A failed send must hand the optimistic entry back so the client can retry
// it, not pretend nothing happened.
func TestSendMessage_FailureReturnsRetryableEntry(t *testing.T) {
	store := &stubThreadStore{insertErr: errors.New("store down")}
	r := messageRouter(store, testPatient)

	w := httptest.NewRecorder()
	body := `{"contact_id":"doc-1","contact_name":"A. Smith","text":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"delivery":"failed"`)
	assert.Contains(t, w.Body.String(), `"temp_id"`)
}
