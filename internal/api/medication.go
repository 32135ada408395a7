package api

import (
	"net/http"

	"medvault-server/internal/medication"
	"medvault-server/internal/model"

	"github.com/gin-gonic/gin"
)

type MedicationHandler struct {
	meds *medication.Repository
}

func NewMedicationHandler(meds *medication.Repository) *MedicationHandler {
	return &MedicationHandler{meds: meds}
}

// medicationView adds the progress shown next to each medication.
type medicationView struct {
	*model.Medication
	PercentRemaining int `json:"percent_remaining"`
}

func viewMedication(m *model.Medication) medicationView {
	return medicationView{Medication: m, PercentRemaining: medication.PercentRemaining(m.RemainingDays, m.TotalDays)}
}

// List handles GET /api/medications
func (h *MedicationHandler) List(c *gin.Context) {
	meds, err := h.meds.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]medicationView, len(meds))
	for i, m := range meds {
		out[i] = viewMedication(m)
	}
	c.JSON(http.StatusOK, gin.H{"medications": out})
}

// Create handles POST /api/medications
func (h *MedicationHandler) Create(c *gin.Context) {
	var form medication.Form
	if !bindJSON(c, &form) {
		return
	}
	m, err := h.meds.Create(c.Request.Context(), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewMedication(m))
}

// Get handles GET /api/medications/:id
func (h *MedicationHandler) Get(c *gin.Context) {
	m, err := h.meds.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewMedication(m))
}

// Update handles PUT /api/medications/:id
func (h *MedicationHandler) Update(c *gin.Context) {
	var changes medication.Changes
	if !bindJSON(c, &changes) {
		return
	}
	m, err := h.meds.Update(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewMedication(m))
}

// Increment handles POST /api/medications/:id/increment
func (h *MedicationHandler) Increment(c *gin.Context) {
	m, err := h.meds.IncrementRemaining(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewMedication(m))
}

// Delete handles DELETE /api/medications/:id
func (h *MedicationHandler) Delete(c *gin.Context) {
	if err := h.meds.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}
