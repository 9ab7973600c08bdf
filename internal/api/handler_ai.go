package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/assistant"
	"carretometro-backend/internal/workshop"
)

// GenerateReport asks for a report over the visits matching the list
// query parameters.
func (h *Handler) GenerateReport(c *gin.Context) {
	visits, err := h.filteredVisits(c, h.now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	report, err := h.Assistant.GenerateReport(c.Request.Context(), visits)
	if err != nil {
		h.logFor(c).WithError(err).Warn("report generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": assistant.ReportFailure})
		return
	}
	c.JSON(http.StatusOK, report)
}

type fleetChatRequest struct {
	FleetID  string `json:"fleetId" binding:"required"`
	Question string `json:"question" binding:"required"`
}

func (h *Handler) FleetChat(c *gin.Context) {
	var req fleetChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	history, err := h.Workshop.FleetHistory(c.Request.Context(), req.FleetID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	answer := h.Assistant.FleetChat(c.Request.Context(), req.FleetID, history, req.Question)
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

type fleetAnalysisRequest struct {
	FleetID      string                 `json:"fleetId" binding:"required"`
	AnalysisType assistant.AnalysisType `json:"analysisType" binding:"required"`
}

func (h *Handler) FleetAnalysis(c *gin.Context) {
	var req fleetAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.AnalysisType.Valid() {
		h.respondError(c, assistant.ErrUnknownAnalysis)
		return
	}
	history, err := h.Workshop.FleetHistory(c.Request.Context(), req.FleetID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	analysis := h.Assistant.AnalyzeFleet(c.Request.Context(), req.FleetID, history, req.AnalysisType)
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

type suggestionsRequest struct {
	FleetID string `json:"fleetId" binding:"required"`
}

// Suggestions produces maintenance suggestions for one vehicle based on its
// history and the history of vehicles with the same equipment.
func (h *Handler) Suggestions(c *gin.Context) {
	var req suggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	fleet, err := h.Workshop.GetFleet(ctx, req.FleetID)
	if errors.Is(err, workshop.ErrFleetNotFound) {
		c.JSON(http.StatusOK, gin.H{"suggestions": assistant.SuggestionsFailure})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	visits, err := h.Workshop.ListVisits(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	text := h.Assistant.Suggestions(ctx, assistant.NewSuggestionData(fleet, visits))
	c.JSON(http.StatusOK, gin.H{"suggestions": text})
}

type diagnoseRequest struct {
	Notes    string `json:"notes"`
	ImageURL string `json:"imageUrl"`
}

// Diagnose suggests an order type, part and service from intake notes.
func (h *Handler) Diagnose(c *gin.Context) {
	var req diagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Notes == "" && req.ImageURL == "" {
		badRequest(c, errors.New("informe observações ou uma imagem"))
		return
	}
	diagnosis, err := h.Assistant.Diagnose(c.Request.Context(), req.Notes, req.ImageURL)
	if err != nil {
		h.logFor(c).WithError(err).Warn("diagnosis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": assistant.DiagnosisFailure})
		return
	}
	c.JSON(http.StatusOK, diagnosis)
}

type assistantRequest struct {
	Question string                  `json:"question" binding:"required"`
	History  []assistant.ChatMessage `json:"history"`
}

// Ask answers a free-form question over every visit and fleet.
func (h *Handler) Ask(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	visits, err := h.Workshop.ListVisits(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	fleets, err := h.Workshop.ListFleets(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	answer := h.Assistant.Ask(ctx, req.History, req.Question, visits, fleets)
	c.JSON(http.StatusOK, gin.H{"response": answer})
}
