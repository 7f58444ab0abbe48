package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/internal/billing"
	"github.com/Benrobo/nexusai-sub000/internal/calls"
	"github.com/Benrobo/nexusai-sub000/internal/kb"
	"github.com/Benrobo/nexusai-sub000/internal/numbers"
	"github.com/Benrobo/nexusai-sub000/internal/users"
	"github.com/Benrobo/nexusai-sub000/pkg/logger"
)

// respondErr maps domain errors onto the API's error contract:
// 400 for bad input and conflicts (conflicts carry code DUPLICATE_ENTRY),
// 404 for missing tenant-owned entities, 500 for everything upstream.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, agents.ErrNotFound),
		errors.Is(err, numbers.ErrNotFound),
		errors.Is(err, kb.ErrNotFound),
		errors.Is(err, calls.ErrNotFound),
		errors.Is(err, billing.ErrNotFound),
		errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NOT_FOUND"})

	case errors.Is(err, agents.ErrDuplicate), errors.Is(err, kb.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "DUPLICATE_ENTRY"})

	case errors.Is(err, agents.ErrInvalidArgument),
		errors.Is(err, kb.ErrInvalidArgument),
		errors.Is(err, billing.ErrInvalidArgument),
		errors.Is(err, numbers.ErrInvalidArg),
		errors.Is(err, users.ErrInvalidArg),
		errors.Is(err, users.ErrBadOTP):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "BAD_REQUEST"})

	case errors.Is(err, numbers.ErrProvisioning):
		logger.FromGin(c).Error("provisioning failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "ERROR_PROVISIONING_NUMBER"})

	default:
		logger.FromGin(c).Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "BAD_REQUEST"})
}
