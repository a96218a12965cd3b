package services

import (
	"context"
	"testing"

	"github.com/Cue77/medilink/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransitionStore struct {
	updates map[string]interface{}
	result  *models.Appointment
	err     error
}

func (f *fakeTransitionStore) UpdateAppointmentIfPending(_ context.Context, _ int64, updates map[string]interface{}) (*models.Appointment, error) {
	f.updates = updates
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestTransition_ApprovalClaimsDoctor(t *testing.T) {
	docID := "doc-1"
	store := &fakeTransitionStore{
		result: &models.Appointment{ID: 9, UserID: "pat-1", DoctorID: &docID, Status: models.StatusApproved},
	}
	machine := NewStatusMachine(store)

	appt, err := machine.Transition(context.Background(), 9, models.StatusApproved, doctor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, appt.Status)
	assert.Equal(t, "approved", store.updates["status"])
	assert.Equal(t, "doc-1", store.updates["doctor_id"], "approval and claim are one write")
}

func TestTransition_PatientCannotApprove(t *testing.T) {
	store := &fakeTransitionStore{}
	machine := NewStatusMachine(store)

	_, err := machine.Transition(context.Background(), 9, models.StatusApproved, patient)
	assert.ErrorIs(t, err, ErrApprovalForbidden)
	assert.Nil(t, store.updates, "no store write on a forbidden approval")
}

func TestTransition_CancelLeavesDoctorUnclaimed(t *testing.T) {
	store := &fakeTransitionStore{
		result: &models.Appointment{ID: 9, UserID: "pat-1", Status: models.StatusCancelled},
	}
	machine := NewStatusMachine(store)

	_, err := machine.Transition(context.Background(), 9, models.StatusCancelled, patient)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", store.updates["status"])
	_, claimed := store.updates["doctor_id"]
	assert.False(t, claimed)
}

func TestTransition_RacingApproversFirstWins(t *testing.T) {
	// The row left pending by the time the second approver's write lands:
	// the guarded update matches nothing and surfaces the conflict.
	store := &fakeTransitionStore{err: ErrConflict}
	machine := NewStatusMachine(store)

	_, err := machine.Transition(context.Background(), 9, models.StatusApproved, doctor)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestTransition_InvalidTargets(t *testing.T) {
	store := &fakeTransitionStore{}
	machine := NewStatusMachine(store)

	for _, target := range []models.AppointmentStatus{models.StatusPending, models.StatusCompleted, "nonsense"} {
		_, err := machine.Transition(context.Background(), 9, target, doctor)
		assert.ErrorIs(t, err, ErrInvalidTransition, string(target))
	}
	assert.Nil(t, store.updates)
}
