package api

import (
	"net/http"
	"time"

	"medvault-server/internal/appointment"
	"medvault-server/internal/model"

	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	appointments *appointment.Repository
	now          func() time.Time
}

func NewAppointmentHandler(appointments *appointment.Repository) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, now: time.Now}
}

// appointmentView adds the countdown label shown on each card.
type appointmentView struct {
	*model.Appointment
	TimeRemaining string `json:"time_remaining"`
}

func (h *AppointmentHandler) view(a *model.Appointment) appointmentView {
	// Stored dates are validated on write
	label, _ := appointment.TimeRemaining(a.Date, h.now())
	return appointmentView{Appointment: a, TimeRemaining: label}
}

// List handles GET /api/appointments
func (h *AppointmentHandler) List(c *gin.Context) {
	list, err := h.appointments.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]appointmentView, len(list))
	for i, a := range list {
		out[i] = h.view(a)
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

// Create handles POST /api/appointments
func (h *AppointmentHandler) Create(c *gin.Context) {
	var form appointment.Form
	if !bindJSON(c, &form) {
		return
	}
	a, err := h.appointments.Create(c.Request.Context(), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(a))
}

// Get handles GET /api/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	a, err := h.appointments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(a))
}

// Update handles PUT /api/appointments/:id
func (h *AppointmentHandler) Update(c *gin.Context) {
	var changes appointment.Changes
	if !bindJSON(c, &changes) {
		return
	}
	a, err := h.appointments.Update(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(a))
}

// Delete handles DELETE /api/appointments/:id
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.appointments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}
