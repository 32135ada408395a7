package api

import (
	"net/http"

	"medvault-server/internal/drive"

	"github.com/gin-gonic/gin"
)

// CapacityHandler handles storage capacity related operations
type CapacityHandler struct {
	files *drive.Service
}

func NewCapacityHandler(files *drive.Service) *CapacityHandler {
	return &CapacityHandler{files: files}
}

// GetUsage returns the current user's storage usage against the quota
func (h *CapacityHandler) GetUsage(c *gin.Context) {
	usage, err := h.files.Usage(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
