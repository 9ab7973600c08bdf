package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey returns the key browsers need to subscribe to alerts.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.Webpush == nil || h.Webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notificações não configuradas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.Webpush.VAPIDPublicKey})
}
