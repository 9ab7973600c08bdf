package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/model"
)

func (h *Handler) ListAudit(c *gin.Context) {
	c.JSON(http.StatusOK, h.Trail.Entries())
}

func (h *Handler) ClearAudit(c *gin.Context) {
	if err := h.Trail.Clear(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type navigationRequest struct {
	Page string `json:"page" binding:"required"`
}

// RecordNavigation logs that the user opened a page of the client.
func (h *Handler) RecordNavigation(c *gin.Context) {
	var req navigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	entry := h.Trail.Record(c.Request.Context(), actor(c).Name, model.AuditNavigation,
		fmt.Sprintf("Navegou para a aba: %s", req.Page))
	c.JSON(http.StatusCreated, entry)
}
