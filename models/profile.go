package models

import "time"

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

type Profile struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	FullName      string    `json:"full_name" db:"full_name"`
	Role          string    `json:"role" db:"role"`
	AvatarURL     *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	ClinicName    *string   `json:"clinic_name,omitempty" db:"clinic_name"`
	ClinicAddress *string   `json:"clinic_address,omitempty" db:"clinic_address"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Viewer is the identity the notification and threading core works with.
type Viewer struct {
	ID       string
	FullName string
	Role     string
}

func (v Viewer) IsDoctor() bool {
	return v.Role == RoleDoctor
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string   `json:"token"`
	User  *Profile `json:"user"`
}
