package api

import (
	"medvault-server/internal/apperr"
	"medvault-server/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError writes a generic message for err and keeps the cause for the
// request log.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		logger.L().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", string(apperr.CodeOf(err))),
			zap.Error(err))
	}
	c.Error(err)
	c.JSON(status, gin.H{
		"error": apperr.PublicMessage(err),
		"code":  apperr.CodeOf(err),
	})
}

// bindJSON decodes the request body into v, answering 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, apperr.Wrap(apperr.CodeValidation, "invalid request body", err))
		return false
	}
	return true
}

// parseParentID maps "" and "root" to the drive root.
func parseParentID(raw string) *string {
	if raw == "" || raw == "root" {
		return nil
	}
	return &raw
}
