package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"outpass-backend/internal/model"
	"outpass-backend/internal/mw"
	"outpass-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers or refreshes a push subscription for the actor.
func (h *Handler) PutSubscription(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)

	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "validation_error"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint:    req.Endpoint,
		RequesterID: actor.ID,
		P256DH:      req.P256DH,
		Auth:        req.Auth,
	}
	if err := h.store.SaveSubscription(c.Request.Context(), subscription); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the actor's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)

	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "validation_error"})
		return
	}

	ctx := c.Request.Context()
	sub, err := h.store.GetSubscription(ctx, req.Endpoint)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sub.RequesterID != actor.ID) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.store.DeleteSubscription(ctx, req.Endpoint); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL-decoding it; push endpoints
// carry their own escaping.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription reports whether the endpoint is registered to the actor.
func (h *Handler) GetSubscription(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)

	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required", "code": "validation_error"})
		return
	}

	sub, err := h.store.GetSubscription(c.Request.Context(), raw)
	if err == nil && sub.RequesterID != actor.ID {
		err = store.ErrNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found", "code": "not_found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "createdAt": sub.CreatedAt})
}

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
