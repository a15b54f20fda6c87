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

type RegistrationHandler struct {
	service service.RegistrationService
}

func NewRegistrationHandler(service service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("registrations/:id", h.GetRegistration)
		router.POST("registrations", h.CreateRegistration)
		router.PUT("registrations/:id/cancel", h.CancelRegistration)
		router.PUT("registrations/:id/no-show", h.MarkNoShow)
	}
}

func (h *RegistrationHandler) CreateRegistration(c *gin.Context) {
	var req model.RegisterRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	reg, err := h.service.Register(c, req)
	if err != nil {
		h.handleRegistrationError(c, err, "CreateRegistration")
		return
	}

	c.JSON(http.StatusCreated, reg)
}

func (h *RegistrationHandler) GetRegistration(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reg, err := h.service.GetByID(c, id)
	if err != nil {
		h.handleRegistrationError(c, err, "GetRegistration")
		return
	}

	c.JSON(http.StatusOK, reg)
}

func (h *RegistrationHandler) CancelRegistration(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reg, err := h.service.Cancel(c, actorFromHeaders(c), id)
	if err != nil {
		h.handleRegistrationError(c, err, "CancelRegistration")
		return
	}

	c.JSON(http.StatusOK, reg)
}

func (h *RegistrationHandler) MarkNoShow(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reg, err := h.service.MarkNoShow(c, actorFromHeaders(c), id)
	if err != nil {
		h.handleRegistrationError(c, err, "MarkNoShow")
		return
	}

	c.JSON(http.StatusOK, reg)
}

// Helper functions

func (h *RegistrationHandler) handleRegistrationError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	var conflict *apperrors.ConflictError
	switch {
	case errors.As(err, &conflict):
		log.Warn("Schedule conflict")
		c.JSON(http.StatusConflict, gin.H{
			"error":                   "Schedule conflict",
			"conflicting_event_id":    conflict.EventID,
			"conflicting_event_title": conflict.EventTitle,
		})
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Event not found",
		})
	case errors.Is(err, apperrors.ErrRegistrationNotFound):
		log.Warn("Registration not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Registration not found",
		})
	case errors.Is(err, apperrors.ErrRegistrationClosed):
		log.Warn("Registration closed")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Registration closed",
		})
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		log.Warn("Already registered")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Already registered",
		})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Forbidden")
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Forbidden",
		})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		log.Error("Invalid transition")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
