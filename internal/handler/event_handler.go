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

type EventHandler struct {
	events        service.EventService
	registrations service.RegistrationService
}

func NewEventHandler(events service.EventService, registrations service.RegistrationService) *EventHandler {
	return &EventHandler{events: events, registrations: registrations}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.GetEvents)
		router.GET("events/:id", h.GetEvent)
		router.GET("events/:id/summary", h.GetEventSummary)
		router.GET("events/:id/waitlist", h.GetWaitlist)
		router.POST("events", h.CreateEvent)
		router.PUT("events/:id", h.UpdateEvent)
		router.PUT("events/:id/cancel", h.CancelEvent)
	}
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	created, err := h.events.Create(c, req)
	if err != nil {
		h.handleEventError(c, err, "CreateEvent")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ev, err := h.events.GetByID(c, id)
	if err != nil {
		h.handleEventError(c, err, "GetEvent")
		return
	}

	c.JSON(http.StatusOK, ev)
}

func (h *EventHandler) GetEvents(c *gin.Context) {
	events, err := h.events.List(c)
	if err != nil {
		h.handleEventError(c, err, "GetEvents")
		return
	}

	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetEventSummary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.events.Summary(c, id)
	if err != nil {
		h.handleEventError(c, err, "GetEventSummary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *EventHandler) GetWaitlist(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	waitlist, err := h.registrations.WaitlistPositions(c, id)
	if err != nil {
		h.handleEventError(c, err, "GetWaitlist")
		return
	}

	c.JSON(http.StatusOK, waitlist)
}

type updateEventRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	MaxParticipants *int    `json:"max_participants"`
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	updated, err := h.events.Update(c, actorFromHeaders(c), id, model.UpdateEventParams{
		Title:           req.Title,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		h.handleEventError(c, err, "UpdateEvent")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *EventHandler) CancelEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.events.Cancel(c, actorFromHeaders(c), id); err != nil {
		h.handleEventError(c, err, "CancelEvent")
		return
	}

	c.Status(http.StatusOK)
}

// Helper functions

func (h *EventHandler) handleEventError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Event not found",
		})
	case errors.Is(err, apperrors.ErrInvalidEventTimes):
		log.Warn("Invalid event times")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid event times",
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
