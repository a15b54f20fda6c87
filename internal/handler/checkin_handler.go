package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-event-registration/internal/model"
	"go-event-registration/internal/service"
	apperrors "go-event-registration/pkg/app_errors"
	"go-event-registration/pkg/logger"
)

type CheckInHandler struct {
	service service.CheckInService
}

func NewCheckInHandler(service service.CheckInService) *CheckInHandler {
	return &CheckInHandler{service: service}
}

func (h *CheckInHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("events/:id/check-in", h.CheckIn)
	}
}

func (h *CheckInHandler) CheckIn(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.CheckInRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	outcome, err := h.service.CheckIn(c, actorFromHeaders(c), eventID, req)
	if err != nil {
		h.handleCheckInError(c, err, "CheckIn")
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// Helper functions

func (h *CheckInHandler) handleCheckInError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Event not found",
		})
	case errors.Is(err, apperrors.ErrInvalidToken):
		log.Warn("Invalid check-in token")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid check-in token",
		})
	case errors.Is(err, apperrors.ErrInvalidCheckInMethod):
		log.Warn("Invalid check-in method")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid check-in method",
		})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Forbidden")
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Forbidden",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
