package models

import "time"

// Message is one row of the messages table. A conversation has no id of its
// own: UserID always holds the patient side of the thread (regardless of who
// wrote the message) and ContactName holds the doctor's display name. ThreadKey
// is the composite "<patientID>:<doctorID>" written on every new row; rows from
// before the key existed carry an empty ThreadKey and are only reachable
// through the name join.
type Message struct {
	ID             int64     `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	ContactName    string    `json:"contact_name" db:"contact_name"`
	Role           string    `json:"role" db:"role"`
	Text           string    `json:"text" db:"text"`
	IsFromUser     bool      `json:"is_from_user" db:"is_from_user"`
	Read           bool      `json:"read" db:"read"`
	ThreadKey      string    `json:"thread_key,omitempty" db:"thread_key"`
	AttachmentURL  *string   `json:"attachment_url,omitempty" db:"attachment_url"`
	AttachmentType *string   `json:"attachment_type,omitempty" db:"attachment_type"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// DeliveryState tags an optimistic message so a failed send stays visible and
// retryable instead of silently looking delivered.
type DeliveryState string

const (
	DeliveryPending   DeliveryState = "pending"
	DeliveryConfirmed DeliveryState = "confirmed"
	DeliveryFailed    DeliveryState = "failed"
)

// OutgoingMessage is the optimistic local view of a send. TempID is generated
// locally; ID is zero until the store confirms and assigns the sequence id.
type OutgoingMessage struct {
	Message
	TempID   string        `json:"temp_id"`
	Delivery DeliveryState `json:"delivery"`
}

type SendMessageRequest struct {
	ContactID      string  `json:"contact_id" binding:"required"`
	ContactName    string  `json:"contact_name" binding:"required"`
	ContactRole    string  `json:"contact_role"`
	Text           string  `json:"text"`
	AttachmentURL  *string `json:"attachment_url,omitempty"`
	AttachmentType *string `json:"attachment_type,omitempty"`
}

type Attachment struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}
