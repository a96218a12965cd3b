package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Cue77/medilink/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeThreadStore struct {
	messages     []models.Message
	threadErr    error
	insertErr    error
	inserted     []map[string]interface{}
	markedRead   []int64
	markReadErr  error
	doctorAppts  []models.Appointment
	patientAppts []models.Appointment
	profiles     []models.Profile
	nextID       int64
}

func (f *fakeThreadStore) ThreadMessages(_ context.Context, filter ThreadFilter) ([]models.Message, error) {
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	var out []models.Message
	for _, m := range f.messages {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeThreadStore) InsertMessage(_ context.Context, row map[string]interface{}) (models.Message, error) {
	if f.insertErr != nil {
		return models.Message{}, f.insertErr
	}
	f.inserted = append(f.inserted, row)
	f.nextID++
	m := models.Message{
		ID:          f.nextID,
		UserID:      row["user_id"].(string),
		ContactName: row["contact_name"].(string),
		Role:        row["role"].(string),
		Text:        row["text"].(string),
		IsFromUser:  row["is_from_user"].(bool),
	}
	if key, ok := row["thread_key"].(string); ok {
		m.ThreadKey = key
	}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeThreadStore) MarkMessagesRead(_ context.Context, ids []int64) error {
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markedRead = append(f.markedRead, ids...)
	return nil
}

func (f *fakeThreadStore) DoctorContactAppointments(_ context.Context, _ string) ([]models.Appointment, error) {
	return f.doctorAppts, nil
}

func (f *fakeThreadStore) PatientContactAppointments(_ context.Context, _ string) ([]models.Appointment, error) {
	return f.patientAppts, nil
}

func (f *fakeThreadStore) ProfilesByIDs(_ context.Context, ids []string) ([]models.Profile, error) {
	var out []models.Profile
	for _, p := range f.profiles {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

var (
	doctor  = models.Viewer{ID: "doc-1", FullName: "A. Smith", Role: models.RoleDoctor}
	patient = models.Viewer{ID: "pat-1", FullName: "Pat Doe", Role: models.RolePatient}
)

func TestWritePayload_DoctorSend(t *testing.T) {
	row := WritePayload(doctor, models.Contact{ID: "pat-1", Name: "Pat Doe", Role: "Patient"}, "hello", nil)

	assert.Equal(t, "pat-1", row["user_id"], "thread owner is always the patient")
	assert.Equal(t, "A. Smith", row["contact_name"])
	assert.Equal(t, false, row["is_from_user"])
	assert.Equal(t, DoctorRoleLabel, row["role"])
	assert.Equal(t, "pat-1:doc-1", row["thread_key"])
}

func TestWritePayload_PatientSend(t *testing.T) {
	att := &models.Attachment{URL: "https://cdn/x.png", Kind: "image"}
	row := WritePayload(patient, models.Contact{ID: "doc-1", Name: "A. Smith", Role: DoctorRoleLabel}, "hi", att)

	assert.Equal(t, "pat-1", row["user_id"])
	assert.Equal(t, "A. Smith", row["contact_name"])
	assert.Equal(t, true, row["is_from_user"])
	assert.Equal(t, "pat-1:doc-1", row["thread_key"])
	assert.Equal(t, "https://cdn/x.png", row["attachment_url"])
	assert.Equal(t, "image", row["attachment_type"])
}

// A doctor's send must land in the thread the patient reads, and in no other
// doctor's thread.
func TestThreadRoundTrip(t *testing.T) {
	store := &fakeThreadStore{}
	svc := NewThreadService(store, zerolog.Nop())

	out, err := svc.Send(context.Background(), doctor, models.Contact{ID: "pat-1", Name: "Pat Doe", Role: "Patient"}, "results are in", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryConfirmed, out.Delivery)
	assert.NotZero(t, out.ID)

	patientView := ReadPredicate(patient, models.Contact{ID: "doc-1", Name: "A. Smith", Role: DoctorRoleLabel})
	got, err := store.ThreadMessages(context.Background(), patientView)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "results are in", got[0].Text)

	otherDoctor := models.Viewer{ID: "doc-2", FullName: "B. Jones", Role: models.RoleDoctor}
	otherView := ReadPredicate(otherDoctor, models.Contact{ID: "pat-1", Name: "Pat Doe", Role: "Patient"})
	got, err = store.ThreadMessages(context.Background(), otherView)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestThreadFilter_LegacyNameJoin(t *testing.T) {
	// Row written before thread keys existed: only reachable by the name join.
	legacy := models.Message{ID: 1, UserID: "pat-1", ContactName: "A. Smith", IsFromUser: false}

	current := ReadPredicate(patient, models.Contact{ID: "doc-1", Name: "A. Smith", Role: DoctorRoleLabel})
	assert.True(t, current.Matches(legacy))

	// After a display-name change the legacy row is unreachable. Known
	// fragility of the denormalized schema, kept as-is.
	renamed := ReadPredicate(patient, models.Contact{ID: "doc-1", Name: "A. Smith-Klein", Role: DoctorRoleLabel})
	assert.False(t, renamed.Matches(legacy))

	// A keyed row survives the rename.
	keyed := legacy
	keyed.ThreadKey = "pat-1:doc-1"
	assert.True(t, renamed.Matches(keyed))
}

func TestThread_MarksCounterpartUnreadRead(t *testing.T) {
	store := &fakeThreadStore{
		messages: []models.Message{
			{ID: 1, UserID: "pat-1", ContactName: "A. Smith", IsFromUser: true, Read: false},  // mine
			{ID: 2, UserID: "pat-1", ContactName: "A. Smith", IsFromUser: false, Read: false}, // doctor's, unread
			{ID: 3, UserID: "pat-1", ContactName: "A. Smith", IsFromUser: false, Read: true},  // doctor's, read
		},
	}
	svc := NewThreadService(store, zerolog.Nop())

	got, err := svc.Thread(context.Background(), patient, models.Contact{ID: "doc-1", Name: "A. Smith", Role: DoctorRoleLabel})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, []int64{2}, store.markedRead)
}

func TestSend_FailureLeavesRetryableEntry(t *testing.T) {
	store := &fakeThreadStore{insertErr: errors.New("store down")}
	svc := NewThreadService(store, zerolog.Nop())

	out, err := svc.Send(context.Background(), patient, models.Contact{ID: "doc-1", Name: "A. Smith", Role: DoctorRoleLabel}, "hello", nil)
	require.Error(t, err)
	require.NotNil(t, out)
	assert.Equal(t, models.DeliveryFailed, out.Delivery)
	assert.NotEmpty(t, out.TempID)
	assert.Zero(t, out.ID, "no sequence id without confirmation")
}

func TestContacts_DoctorDedupesAndExcludesSelf(t *testing.T) {
	docID := "doc-1"
	store := &fakeThreadStore{
		doctorAppts: []models.Appointment{
			{ID: 1, UserID: "pat-1", DoctorID: &docID, Status: models.StatusApproved},
			{ID: 2, UserID: "pat-1", DoctorID: &docID, Status: models.StatusCompleted},
			{ID: 3, UserID: "pat-2", DoctorID: &docID, Status: models.StatusApproved},
			{ID: 4, UserID: "doc-1", DoctorID: &docID, Status: models.StatusApproved}, // self-booking
		},
		profiles: []models.Profile{
			{ID: "pat-1", FullName: "Pat Doe"},
			{ID: "pat-2", FullName: "Sam Roe"},
		},
	}
	svc := NewThreadService(store, zerolog.Nop())

	contacts, err := svc.Contacts(context.Background(), doctor)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "pat-1", contacts[0].ID)
	assert.Equal(t, "Patient", contacts[0].Role)
	assert.Equal(t, "pat-2", contacts[1].ID)
}

func TestContacts_PatientFallsBackToSupport(t *testing.T) {
	store := &fakeThreadStore{}
	svc := NewThreadService(store, zerolog.Nop())

	contacts, err := svc.Contacts(context.Background(), patient)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, SupportContactID, contacts[0].ID)
	assert.Equal(t, "MediLink Support", contacts[0].Name)
}

func TestContacts_PatientListsClaimedDoctors(t *testing.T) {
	docID := "doc-1"
	store := &fakeThreadStore{
		patientAppts: []models.Appointment{
			{ID: 1, UserID: "pat-1", DoctorID: &docID, Status: models.StatusApproved},
			{ID: 2, UserID: "pat-1", DoctorID: nil, Status: models.StatusApproved},
		},
		profiles: []models.Profile{{ID: "doc-1", FullName: "A. Smith"}},
	}
	svc := NewThreadService(store, zerolog.Nop())

	contacts, err := svc.Contacts(context.Background(), patient)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "doc-1", contacts[0].ID)
	assert.Equal(t, DoctorRoleLabel, contacts[0].Role)
}
