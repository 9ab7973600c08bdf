package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/model"
)

// SearchFleets lists fleets, optionally matching ?q= against number, plate
// and carrier.
func (h *Handler) SearchFleets(c *gin.Context) {
	fleets, err := h.Workshop.SearchFleets(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fleets)
}

func (h *Handler) CreateFleet(c *gin.Context) {
	var fleet model.Fleet
	if err := c.ShouldBindJSON(&fleet); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.Workshop.CreateFleet(c.Request.Context(), actor(c), fleet)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateFleet(c *gin.Context) {
	var fleet model.Fleet
	if err := c.ShouldBindJSON(&fleet); err != nil {
		badRequest(c, err)
		return
	}
	fleet.ID = c.Param("id")
	updated, err := h.Workshop.UpdateFleet(c.Request.Context(), actor(c), fleet)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteFleet answers 409 with {success:false, hasVisits:true} when visits
// still reference the fleet.
func (h *Handler) DeleteFleet(c *gin.Context) {
	res, err := h.Workshop.DeleteFleet(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if res.HasVisits {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) FleetStats(c *gin.Context) {
	stats, err := h.Workshop.FleetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) FleetHistory(c *gin.Context) {
	visits, err := h.Workshop.FleetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}
