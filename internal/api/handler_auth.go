package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/auth"
)

type loginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a session token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := h.Auth.Login(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Logout records the end of the session.
func (h *Handler) Logout(c *gin.Context) {
	h.Auth.Logout(c.Request.Context(), actor(c))
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, actor(c))
}

type passwordResetRequest struct {
	Name        string `json:"name" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// RequestPasswordReset queues a new password for approval.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Auth.RequestPasswordReset(c.Request.Context(), req.Name, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// RequestAccess files a self-service account request.
func (h *Handler) RequestAccess(c *gin.Context) {
	var req auth.AccessRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.Auth.RequestAccess(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
