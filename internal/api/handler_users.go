package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/auth"
	"carretometro-backend/internal/model"
)

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Auth.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type createUserRequest struct {
	Name     string     `json:"name" binding:"required"`
	Password string     `json:"password" binding:"required"`
	Role     model.Role `json:"role"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.Auth.RegisterUser(c.Request.Context(), actor(c), req.Name, req.Password, req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var patch auth.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.Auth.UpdateUser(c.Request.Context(), actor(c), c.Param("name"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.Auth.DeleteUser(c.Request.Context(), actor(c), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListPasswordResets(c *gin.Context) {
	resets, err := h.Auth.ListPasswordResets(c.Request.Context(), actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resets)
}

func (h *Handler) ApprovePasswordReset(c *gin.Context) {
	if err := h.Auth.ApprovePasswordReset(c.Request.Context(), actor(c), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DenyPasswordReset(c *gin.Context) {
	if err := h.Auth.DenyPasswordReset(c.Request.Context(), actor(c), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListAccessRequests(c *gin.Context) {
	reqs, err := h.Auth.ListAccessRequests(c.Request.Context(), actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

type approveAccessRequest struct {
	Role model.Role `json:"role"`
}

func (h *Handler) ApproveAccessRequest(c *gin.Context) {
	var req approveAccessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	approved, err := h.Auth.ApproveAccessRequest(c.Request.Context(), actor(c), c.Param("id"), req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, approved)
}

func (h *Handler) DenyAccessRequest(c *gin.Context) {
	denied, err := h.Auth.DenyAccessRequest(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, denied)
}
