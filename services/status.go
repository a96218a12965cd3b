package services

import (
	"context"
	"errors"

	"github.com/Cue77/medilink/models"
)

var (
	// ErrInvalidTransition rejects targets outside pending → approved/cancelled.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrApprovalForbidden rejects approval by anyone but a doctor.
	ErrApprovalForbidden = errors.New("only a doctor can approve an appointment")
)

// TransitionStore applies a guarded status update: the write only matches
// rows still in the pending state.
type TransitionStore interface {
	UpdateAppointmentIfPending(ctx context.Context, id int64, updates map[string]interface{}) (*models.Appointment, error)
}

// StatusMachine governs pending → approved/cancelled. Approval claims the
// appointment for the acting doctor; the store-side pending guard makes the
// first approver win, so a losing concurrent approval observes ErrConflict
// rather than silently overwriting the claim.
type StatusMachine struct {
	store TransitionStore
}

func NewStatusMachine(store TransitionStore) *StatusMachine {
	return &StatusMachine{store: store}
}

// Transition moves an appointment out of pending on behalf of the actor.
// Approved is terminal here: reschedules re-date the row without touching
// status, and completion is handled elsewhere.
func (m *StatusMachine) Transition(ctx context.Context, id int64, target models.AppointmentStatus, actor models.Viewer) (*models.Appointment, error) {
	updates := map[string]interface{}{"status": string(target)}
	switch target {
	case models.StatusApproved:
		if !actor.IsDoctor() {
			return nil, ErrApprovalForbidden
		}
		updates["doctor_id"] = actor.ID
	case models.StatusCancelled:
		// Either party may cancel; the doctor slot stays unclaimed.
	default:
		return nil, ErrInvalidTransition
	}
	return m.store.UpdateAppointmentIfPending(ctx, id, updates)
}
