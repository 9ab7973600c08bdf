package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/model"
	"carretometro-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string         `json:"endpoint" binding:"required"`
	P256DH   string         `json:"p256dh" binding:"required"`
	Auth     string         `json:"auth" binding:"required"`
	Workshop model.Workshop `json:"workshop"`
}

// PutSubscription creates or replaces the SLA alert subscription of a
// browser. An empty workshop subscribes to every workshop.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Workshop != "" && !req.Workshop.Valid() {
		h.respondError(c, fmt.Errorf("%w: oficina %q", errBadQuery, req.Workshop))
		return
	}

	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
		Workshop: req.Workshop,
	}
	if err := h.Subscriptions.SaveSubscription(c.Request.Context(), sub); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Subscriptions.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// rawQueryParam reads key from the raw query without URL decoding. Push
// endpoints are stored as the browser sent them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if value, ok := strings.CutPrefix(kv, key+"="); ok {
			return value, true
		}
	}
	return "", false
}

// GetSubscription tells a browser which workshop it is subscribed to.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint é obrigatório"})
		return
	}
	sub, err := h.Subscriptions.GetSubscription(c.Request.Context(), endpoint)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "inscrição não encontrada"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workshop": sub.Workshop})
}
