package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-event-registration/internal/model"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// parseIDParam reads a UUID path parameter, writing a 400 response on
// failure.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return uuid.Nil, false
	}
	return id, true
}

// actorFromHeaders resolves the acting identity from request headers.
// Authentication is an upstream concern; absent or invalid headers fall
// back to an anonymous attendee.
func actorFromHeaders(c *gin.Context) model.Actor {
	actor := model.Actor{Role: model.RoleAttendee}

	if id, err := uuid.Parse(c.GetHeader("X-Actor-ID")); err == nil {
		actor.ID = id
	}
	if role := model.Role(c.GetHeader("X-Actor-Role")); role.IsValid() {
		actor.Role = role
	}

	return actor
}
