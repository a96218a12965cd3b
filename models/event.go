package models

// EventSource records which delivery channel produced an event.
type EventSource string

const (
	SourceFeed EventSource = "feed"
	SourcePoll EventSource = "poll"
)

// MessageEvent is a raw message insert observed on either channel.
type MessageEvent struct {
	Message Message
	Source  EventSource
}

// AppointmentEvent is an appointment update. Old is nil on the polling path,
// which cannot see previous field values; consumers must treat a nil Old as
// "status may or may not have changed".
type AppointmentEvent struct {
	New    Appointment
	Old    *Appointment
	Source EventSource
}

// Notice is the transient, dismissible notification descriptor handed to the
// UI layer. Delivery is at most once and best effort.
type Notice struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

const (
	CategoryMessage     = "message"
	CategoryAppointment = "appointment"
	CategoryStatus      = "status"
)
