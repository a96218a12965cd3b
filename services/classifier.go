package services

import (
	"fmt"

	"github.com/Cue77/medilink/models"
)

// ClassifyMessage decides whether a raw message insert concerns the viewer and
// what notice to show. A doctor is addressed when a patient-authored row names
// them as the contact; a patient is addressed when a doctor-authored row sits
// in a thread they own.
func ClassifyMessage(viewer models.Viewer, ev models.MessageEvent) (models.Notice, bool) {
	m := ev.Message
	if viewer.IsDoctor() {
		if m.IsFromUser && m.ContactName == viewer.FullName {
			return models.Notice{Title: "New Patient Message", Category: models.CategoryMessage}, true
		}
		return models.Notice{}, false
	}
	if m.UserID == viewer.ID && !m.IsFromUser {
		return models.Notice{
			Title:    fmt.Sprintf("New Message from %s", m.ContactName),
			Category: models.CategoryMessage,
		}, true
	}
	return models.Notice{}, false
}

// ClassifyAppointment decides whether an appointment update deserves a notice.
// Feed events carry the previous row, so only real status changes notify.
// Polling events have no previous row and always notify; that precision loss
// is inherent to the fallback path.
func ClassifyAppointment(viewer models.Viewer, ev models.AppointmentEvent) (models.Notice, bool) {
	if ev.New.UserID != viewer.ID {
		return models.Notice{}, false
	}
	if ev.Old != nil {
		if ev.Old.Status == ev.New.Status {
			return models.Notice{}, false
		}
		return models.Notice{
			Title:    fmt.Sprintf("Appointment %s", ev.New.Status),
			Category: models.CategoryAppointment,
		}, true
	}
	return models.Notice{
		Title:    fmt.Sprintf("Appointment Updated: %s", ev.New.Status),
		Category: models.CategoryAppointment,
	}, true
}
