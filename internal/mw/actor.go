package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"outpass-backend/internal/model"
)

// Headers set by the identity proxy in front of the service.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
	HeaderActorUnit = "X-Actor-Unit"

	actorKey = "actor"
)

// Actor reads the trusted actor headers into the request context. Requests
// without an id or with an unknown role are rejected.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		role, ok := model.ParseRole(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorRole))))
		if id == "" || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor", "code": "unauthenticated"})
			return
		}
		c.Set(actorKey, model.Actor{
			ID:   id,
			Role: role,
			Unit: strings.TrimSpace(c.GetHeader(HeaderActorUnit)),
		})
		c.Next()
	}
}

// CurrentActor returns the actor stored by Actor.
func CurrentActor(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}, false
	}
	a, ok := v.(model.Actor)
	return a, ok
}

// RequireRole lets the request through only for the given roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := CurrentActor(c)
		if ok {
			for _, r := range roles {
				if a.Role == r {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "forbidden"})
	}
}
