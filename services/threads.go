package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Cue77/medilink/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SupportContactID is the placeholder counterpart shown to patients with no
// approved appointments yet.
const SupportContactID = "system"

// DoctorRoleLabel is the denormalized role string written on doctor-authored
// rows. It predates the thread key and only matters for display.
const DoctorRoleLabel = "General Practitioner"

// ThreadFilter selects exactly the messages of one patient/doctor pair.
// OwnerID is always the patient side; ContactName is the doctor's display
// name. The name join is fragile by construction: if a doctor's display name
// changes, rows without a ThreadKey become unreachable under the new name.
type ThreadFilter struct {
	OwnerID     string
	ContactName string
	ThreadKey   string
}

// Matches reports whether a message belongs to the filtered thread. Rows with
// a thread key match on it; legacy rows fall back to the name join.
func (f ThreadFilter) Matches(m models.Message) bool {
	if f.ThreadKey != "" && m.ThreadKey != "" {
		return m.ThreadKey == f.ThreadKey
	}
	return m.UserID == f.OwnerID && m.ContactName == f.ContactName
}

// ComposeThreadKey builds the explicit conversation identifier written on
// every new message: patient id first, doctor id second.
func ComposeThreadKey(patientID, doctorID string) string {
	return fmt.Sprintf("%s:%s", patientID, doctorID)
}

// ReadPredicate computes the filter for the viewer's conversation with the
// selected counterpart. For doctors the counterpart is a patient (the thread
// owner); for patients it is a doctor. The support pseudo-contact has no
// doctor id, so its filter carries no thread key.
func ReadPredicate(viewer models.Viewer, contact models.Contact) ThreadFilter {
	if viewer.IsDoctor() {
		return ThreadFilter{
			OwnerID:     contact.ID,
			ContactName: viewer.FullName,
			ThreadKey:   ComposeThreadKey(contact.ID, viewer.ID),
		}
	}
	f := ThreadFilter{
		OwnerID:     viewer.ID,
		ContactName: contact.Name,
	}
	if contact.ID != SupportContactID {
		f.ThreadKey = ComposeThreadKey(viewer.ID, contact.ID)
	}
	return f
}

// WritePayload builds the denormalized message row for a send. The thread
// owner is always the patient: a doctor sending to patient P writes owner = P
// with their own name as contact; a patient writes owner = self with the
// doctor's name as contact.
func WritePayload(viewer models.Viewer, contact models.Contact, text string, att *models.Attachment) map[string]interface{} {
	row := map[string]interface{}{
		"text": text,
		"read": false,
	}
	if viewer.IsDoctor() {
		row["user_id"] = contact.ID
		row["contact_name"] = viewer.FullName
		row["role"] = DoctorRoleLabel
		row["is_from_user"] = false
		row["thread_key"] = ComposeThreadKey(contact.ID, viewer.ID)
	} else {
		row["user_id"] = viewer.ID
		row["contact_name"] = contact.Name
		row["role"] = contact.Role
		row["is_from_user"] = true
		if contact.ID != SupportContactID {
			row["thread_key"] = ComposeThreadKey(viewer.ID, contact.ID)
		}
	}
	if att != nil {
		row["attachment_url"] = att.URL
		row["attachment_type"] = att.Kind
	}
	return row
}

// ThreadStore is what the resolver needs from the backing store.
type ThreadStore interface {
	ThreadMessages(ctx context.Context, f ThreadFilter) ([]models.Message, error)
	InsertMessage(ctx context.Context, row map[string]interface{}) (models.Message, error)
	MarkMessagesRead(ctx context.Context, ids []int64) error
	DoctorContactAppointments(ctx context.Context, doctorID string) ([]models.Appointment, error)
	PatientContactAppointments(ctx context.Context, userID string) ([]models.Appointment, error)
	ProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error)
}

type ThreadService struct {
	store ThreadStore
	log   zerolog.Logger
}

func NewThreadService(store ThreadStore, log zerolog.Logger) *ThreadService {
	return &ThreadService{store: store, log: log.With().Str("component", "threads").Logger()}
}

// Thread loads the conversation between the viewer and the counterpart and
// marks the counterpart's unread rows read. An empty result is returned as-is:
// a thread emptied by a display-name change is indistinguishable from a thread
// with no messages yet.
func (s *ThreadService) Thread(ctx context.Context, viewer models.Viewer, contact models.Contact) ([]models.Message, error) {
	filter := ReadPredicate(viewer, contact)
	messages, err := s.store.ThreadMessages(ctx, filter)
	if err != nil {
		return nil, err
	}

	var unread []int64
	for _, m := range messages {
		fromOther := m.IsFromUser == viewer.IsDoctor()
		if fromOther && !m.Read {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) > 0 {
		if err := s.store.MarkMessagesRead(ctx, unread); err != nil {
			s.log.Warn().Err(err).Int("count", len(unread)).Msg("mark read failed")
		}
	}
	return messages, nil
}

// Send applies the message optimistically and then persists it. On success the
// returned entry is confirmed and carries the store-assigned sequence id. On
// failure the entry stays in the failed state for the caller to retry; there
// is no automatic rollback.
func (s *ThreadService) Send(ctx context.Context, viewer models.Viewer, contact models.Contact, text string, att *models.Attachment) (*models.OutgoingMessage, error) {
	out := &models.OutgoingMessage{
		TempID:   uuid.New().String(),
		Delivery: models.DeliveryPending,
	}
	out.Text = text
	out.IsFromUser = !viewer.IsDoctor()
	out.ContactName = contact.Name
	out.Role = contact.Role
	out.CreatedAt = time.Now().UTC()
	if att != nil {
		out.AttachmentURL = &att.URL
		out.AttachmentType = &att.Kind
	}

	row := WritePayload(viewer, contact, text, att)
	stored, err := s.store.InsertMessage(ctx, row)
	if err != nil {
		out.Delivery = models.DeliveryFailed
		s.log.Error().Err(err).Str("temp_id", out.TempID).Msg("send failed")
		return out, err
	}

	out.Message = stored
	out.Delivery = models.DeliveryConfirmed
	return out, nil
}

// Contacts discovers the viewer's counterparts by scanning approved and
// completed appointments. Doctors exclude appointments where they booked as
// the patient; patients with no counterparts yet get the support contact.
func (s *ThreadService) Contacts(ctx context.Context, viewer models.Viewer) ([]models.Contact, error) {
	var (
		appointments []models.Appointment
		err          error
	)
	if viewer.IsDoctor() {
		appointments, err = s.store.DoctorContactAppointments(ctx, viewer.ID)
	} else {
		appointments, err = s.store.PatientContactAppointments(ctx, viewer.ID)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, a := range appointments {
		var counterpart string
		if viewer.IsDoctor() {
			counterpart = a.UserID
		} else if a.DoctorID != nil {
			counterpart = *a.DoctorID
		}
		if counterpart == "" || counterpart == viewer.ID {
			continue
		}
		if _, ok := seen[counterpart]; ok {
			continue
		}
		seen[counterpart] = struct{}{}
		ids = append(ids, counterpart)
	}

	profiles, err := s.store.ProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	var contacts []models.Contact
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		role := DoctorRoleLabel
		if viewer.IsDoctor() {
			role = "Patient"
		}
		contacts = append(contacts, models.Contact{
			ID:        p.ID,
			Name:      p.FullName,
			Role:      role,
			AvatarURL: p.AvatarURL,
		})
	}

	if !viewer.IsDoctor() && len(contacts) == 0 {
		contacts = append(contacts, models.Contact{
			ID:   SupportContactID,
			Name: "MediLink Support",
			Role: "System Admin",
		})
	}
	return contacts, nil
}
