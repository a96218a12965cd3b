package models

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Appointment row. DoctorID is null until a doctor claims the appointment by
// approving it; cancellation from pending leaves it null.
type Appointment struct {
	ID        int64             `json:"id" db:"id"`
	UserID    string            `json:"user_id" db:"user_id"`
	DoctorID  *string           `json:"doctor_id,omitempty" db:"doctor_id"`
	Date      string            `json:"date" db:"date"`
	Type      string            `json:"type" db:"type"`
	Status    AppointmentStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

type AppointmentWithDetails struct {
	Appointment
	PatientName   string `json:"patient_name,omitempty"`
	DoctorName    string `json:"doctor_name,omitempty"`
	ClinicName    string `json:"clinic_name,omitempty"`
	ClinicAddress string `json:"clinic_address,omitempty"`
}

type BookAppointmentRequest struct {
	Date string `json:"date" binding:"required"`
	Type string `json:"type"`
}

type RescheduleRequest struct {
	Date string `json:"date" binding:"required"`
}

type TransitionRequest struct {
	Status AppointmentStatus `json:"status" binding:"required"`
}
