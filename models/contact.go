package models

// Contact is a view-local projection, never persisted: the distinct
// counterparties a viewer can message, derived from approved or completed
// appointments.
type Contact struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
