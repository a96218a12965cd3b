package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Cue77/medilink/models"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

// ErrConflict is returned when a guarded update matched zero rows, i.e. the
// row was no longer in the state the caller assumed.
var ErrConflict = errors.New("row not in expected state")

// SupabaseStore issues every query the notification and threading core needs
// against PostgREST. Callers depend on the narrow interfaces declared next to
// each consumer, not on this type.
type SupabaseStore struct {
	client *supa.Client
}

func NewSupabaseStore(client *supa.Client) *SupabaseStore {
	return &SupabaseStore{client: client}
}

// LatestMessageID returns the highest message sequence id, or zero when the
// table is empty.
func (s *SupabaseStore) LatestMessageID(ctx context.Context) (int64, error) {
	var rows []struct {
		ID int64 `json:"id"`
	}
	data, _, err := s.client.From("messages").
		Select("id", "", false).
		Order("id", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return 0, fmt.Errorf("latest message id: %w", err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].ID, nil
}

// MessagesAfter returns messages with sequence id strictly greater than
// afterID, ascending.
func (s *SupabaseStore) MessagesAfter(ctx context.Context, afterID int64) ([]models.Message, error) {
	var messages []models.Message
	data, _, err := s.client.From("messages").
		Select("*", "", false).
		Gt("id", strconv.FormatInt(afterID, 10)).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("messages after %d: %w", afterID, err)
	}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// AppointmentsUpdatedAfter returns the viewer's appointments touched since the
// given time.
func (s *SupabaseStore) AppointmentsUpdatedAfter(ctx context.Context, userID string, since time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	data, _, err := s.client.From("appointments").
		Select("*", "", false).
		Eq("user_id", userID).
		Gt("updated_at", since.UTC().Format(time.RFC3339)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("appointments updated after %s: %w", since, err)
	}
	if err := json.Unmarshal(data, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// ThreadMessages fetches a conversation using the resolver's filter. Rows are
// matched by thread key where one is available, falling back to the legacy
// owner + contact-name join for rows written before the key existed.
func (s *SupabaseStore) ThreadMessages(ctx context.Context, f ThreadFilter) ([]models.Message, error) {
	query := s.client.From("messages").
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: true})

	if f.ThreadKey != "" {
		query = query.Or(fmt.Sprintf(`thread_key.eq.%s,and(user_id.eq.%s,contact_name.eq."%s")`,
			f.ThreadKey, f.OwnerID, f.ContactName), "")
	} else {
		query = query.
			Eq("user_id", f.OwnerID).
			Eq("contact_name", f.ContactName)
	}

	var messages []models.Message
	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("thread messages: %w", err)
	}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// InsertMessage persists a resolver write payload and returns the stored row.
func (s *SupabaseStore) InsertMessage(ctx context.Context, row map[string]interface{}) (models.Message, error) {
	var created []models.Message
	data, _, err := s.client.From("messages").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return models.Message{}, err
	}
	if len(created) == 0 {
		return models.Message{}, errors.New("insert message: no row returned")
	}
	return created[0], nil
}

func (s *SupabaseStore) MarkMessagesRead(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = strconv.FormatInt(id, 10)
	}
	_, _, err := s.client.From("messages").
		Update(map[string]interface{}{"read": true}, "", "").
		In("id", values).
		Execute()
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}

// DoctorContactAppointments lists the appointments a doctor derives contacts
// from: their own approved or completed visits, excluding ones where the
// doctor booked as a patient.
func (s *SupabaseStore) DoctorContactAppointments(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	data, _, err := s.client.From("appointments").
		Select("*", "", false).
		Eq("doctor_id", doctorID).
		Neq("user_id", doctorID).
		In("status", []string{string(models.StatusApproved), string(models.StatusCompleted)}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("doctor contact appointments: %w", err)
	}
	if err := json.Unmarshal(data, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// PatientContactAppointments lists the appointments a patient derives contacts
// from: their own approved or completed visits with a claimed doctor.
func (s *SupabaseStore) PatientContactAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	data, _, err := s.client.From("appointments").
		Select("*", "", false).
		Eq("user_id", userID).
		In("status", []string{string(models.StatusApproved), string(models.StatusCompleted)}).
		Not("doctor_id", "is", "null").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("patient contact appointments: %w", err)
	}
	if err := json.Unmarshal(data, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (s *SupabaseStore) ProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []models.Profile
	data, _, err := s.client.From("profiles").
		Select("id, full_name, role, avatar_url, clinic_name, clinic_address", "", false).
		In("id", ids).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("profiles by ids: %w", err)
	}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *SupabaseStore) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	var profiles []models.Profile
	data, _, err := s.client.From("profiles").
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("profile by id: %w", err)
	}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

func (s *SupabaseStore) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profiles []models.Profile
	data, _, err := s.client.From("profiles").
		Select("*", "", false).
		Eq("email", email).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("profile by email: %w", err)
	}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

func (s *SupabaseStore) InsertProfile(ctx context.Context, row map[string]interface{}) (*models.Profile, error) {
	var created []models.Profile
	data, _, err := s.client.From("profiles").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, errors.New("insert profile: no row returned")
	}
	return &created[0], nil
}

// appointmentRow carries the PostgREST foreign-table embeds used by the
// appointment list queries.
type appointmentRow struct {
	models.Appointment
	Doctor *struct {
		FullName      string  `json:"full_name"`
		ClinicName    *string `json:"clinic_name"`
		ClinicAddress *string `json:"clinic_address"`
	} `json:"doctor"`
	User *struct {
		FullName string `json:"full_name"`
	} `json:"user"`
}

func (r appointmentRow) withDetails() models.AppointmentWithDetails {
	out := models.AppointmentWithDetails{Appointment: r.Appointment}
	if r.Doctor != nil {
		out.DoctorName = r.Doctor.FullName
		if r.Doctor.ClinicName != nil {
			out.ClinicName = *r.Doctor.ClinicName
		}
		if r.Doctor.ClinicAddress != nil {
			out.ClinicAddress = *r.Doctor.ClinicAddress
		}
	}
	if r.User != nil {
		out.PatientName = r.User.FullName
	}
	return out
}

// PatientAppointments returns a patient's appointments with the claimed
// doctor's display fields embedded.
func (s *SupabaseStore) PatientAppointments(ctx context.Context, userID string) ([]models.AppointmentWithDetails, error) {
	var rows []appointmentRow
	data, _, err := s.client.From("appointments").
		Select("*, doctor:profiles!appointments_doctor_id_fkey(full_name, clinic_name, clinic_address)", "", false).
		Eq("user_id", userID).
		Order("date", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("patient appointments: %w", err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	out := make([]models.AppointmentWithDetails, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.withDetails())
	}
	return out, nil
}

// DoctorAppointments returns the doctor dashboard set: appointments claimed by
// this doctor plus every unclaimed pending one, excluding rows where the
// doctor is the patient.
func (s *SupabaseStore) DoctorAppointments(ctx context.Context, doctorID string) ([]models.AppointmentWithDetails, error) {
	var rows []appointmentRow
	data, _, err := s.client.From("appointments").
		Select("*, user:profiles!appointments_user_id_fkey(full_name)", "", false).
		Or(fmt.Sprintf("doctor_id.eq.%s,status.eq.pending", doctorID), "").
		Neq("user_id", doctorID).
		Order("date", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("doctor appointments: %w", err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	out := make([]models.AppointmentWithDetails, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.withDetails())
	}
	return out, nil
}

func (s *SupabaseStore) InsertAppointment(ctx context.Context, row map[string]interface{}) (*models.Appointment, error) {
	var created []models.Appointment
	data, _, err := s.client.From("appointments").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, errors.New("insert appointment: no row returned")
	}
	return &created[0], nil
}

// RescheduleAppointment re-dates the viewer's own appointment. Status is left
// untouched; only the timestamp moves.
func (s *SupabaseStore) RescheduleAppointment(ctx context.Context, id int64, userID, date string) (*models.Appointment, error) {
	var updated []models.Appointment
	data, _, err := s.client.From("appointments").
		Update(map[string]interface{}{"date": date}, "", "").
		Eq("id", strconv.FormatInt(id, 10)).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}
	if err := json.Unmarshal(data, &updated); err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrConflict
	}
	return &updated[0], nil
}

// UpdateAppointmentIfPending applies a status transition guarded by
// status=pending, so a transition on an already-moved row matches zero rows
// and surfaces as ErrConflict. First writer wins on concurrent approvals.
func (s *SupabaseStore) UpdateAppointmentIfPending(ctx context.Context, id int64, updates map[string]interface{}) (*models.Appointment, error) {
	var updated []models.Appointment
	data, _, err := s.client.From("appointments").
		Update(updates, "", "").
		Eq("id", strconv.FormatInt(id, 10)).
		Eq("status", string(models.StatusPending)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("transition appointment: %w", err)
	}
	if err := json.Unmarshal(data, &updated); err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrConflict
	}
	return &updated[0], nil
}
