package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Cue77/medilink/config"
	"github.com/Cue77/medilink/models"
	"github.com/Cue77/medilink/services"
	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	store   *services.SupabaseStore
	machine *services.StatusMachine
	config  *config.Config
}

func NewAppointmentHandler(store *services.SupabaseStore, machine *services.StatusMachine, cfg *config.Config) *AppointmentHandler {
	return &AppointmentHandler{
		store:   store,
		machine: machine,
		config:  cfg,
	}
}

func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	userID := c.GetString("user_id")

	appointments, err := h.store.PatientAppointments(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to fetch appointments",
		})
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Data:    appointments,
	})
}

// GetDoctorAppointments returns the dashboard set: claimed by me, plus every
// unclaimed pending appointment any doctor could pick up.
func (h *AppointmentHandler) GetDoctorAppointments(c *gin.Context) {
	doctorID := c.GetString("user_id")

	appointments, err := h.store.DoctorAppointments(c.Request.Context(), doctorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to fetch appointments",
		})
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Data:    appointments,
	})
}

func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	appointmentType := req.Type
	if appointmentType == "" {
		appointmentType = "GP Consultation"
	}

	appointment, err := h.store.InsertAppointment(c.Request.Context(), map[string]interface{}{
		"user_id": userID,
		"date":    req.Date,
		"type":    appointmentType,
		"status":  string(models.StatusPending),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to book appointment",
		})
		return
	}

	c.JSON(http.StatusCreated, models.Response{
		Success: true,
		Message: "Appointment booked successfully",
		Data:    appointment,
	})
}

// RescheduleAppointment re-dates the viewer's own appointment without touching
// its status.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	userID := c.GetString("user_id")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid appointment id",
		})
		return
	}

	var req models.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	appointment, err := h.store.RescheduleAppointment(c.Request.Context(), id, userID, req.Date)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			c.JSON(http.StatusNotFound, models.Response{
				Success: false,
				Error:   "Appointment not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to reschedule appointment",
		})
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Reschedule confirmed",
		Data:    appointment,
	})
}

// CancelAppointment is the patient-side cancel: a status transition, not a
// delete, so the row stays visible in history.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	viewer := viewerFromContext(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid appointment id",
		})
		return
	}

	appointment, err := h.machine.Transition(c.Request.Context(), id, models.StatusCancelled, viewer)
	if err != nil {
		h.transitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Appointment cancelled",
		Data:    appointment,
	})
}

// UpdateStatus is the doctor-side transition: approving claims the
// appointment for the acting doctor.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	viewer := viewerFromContext(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid appointment id",
		})
		return
	}

	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	appointment, err := h.machine.Transition(c.Request.Context(), id, req.Status, viewer)
	if err != nil {
		h.transitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Appointment " + string(req.Status),
		Data:    appointment,
	})
}

func (h *AppointmentHandler) transitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Error:   "Invalid status transition",
		})
	case errors.Is(err, services.ErrApprovalForbidden):
		c.JSON(http.StatusForbidden, models.Response{
			Success: false,
			Error:   "Only a doctor can approve an appointment",
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, models.Response{
			Success: false,
			Error:   "Appointment is no longer pending",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.Response{
			Success: false,
			Error:   "Failed to update status",
		})
	}
}
