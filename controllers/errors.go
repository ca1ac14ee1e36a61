package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomMcKenna1/nutrilytics-backend/services"
)

// respondServiceError maps service-layer sentinel errors onto HTTP statuses.
// Draft-store unavailability is a 503, never a 404: a missing backend is not
// a missing draft.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized to access this resource"})
	case errors.Is(err, services.ErrDraftNotComplete):
		c.JSON(http.StatusConflict, gin.H{"error": "draft is not complete and cannot be saved"})
	case errors.Is(err, services.ErrInvalidCursor):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid 'next' cursor"})
	case errors.Is(err, services.ErrInvalidLimit):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "limit must be between 1 and 20"})
	case errors.Is(err, services.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "a cache server error occurred"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
