package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/metrics"
	"carretometro-backend/internal/model"
	"carretometro-backend/internal/view"
)

// GetReference returns the fixed enumerations and SLA targets the client
// builds its forms and charts from.
func (h *Handler) GetReference(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"workshops":  model.AllWorkshops,
		"orderTypes": model.AllOrderTypes,
		"statuses":   model.AllStatuses,
		"slaTargets": metrics.Targets(),
		"sortKeys":   view.SortKeys(),
	})
}

// GetMetrics computes the dashboard for ?date= and ?workshop=.
func (h *Handler) GetMetrics(c *gin.Context) {
	date, err := parseDate(c.Query("date"), h.Location)
	if err != nil {
		h.respondError(c, err)
		return
	}
	opts := metrics.Options{
		Date:     date,
		Workshop: model.Workshop(c.Query("workshop")),
		Location: h.Location,
	}
	if opts.Workshop == view.All {
		opts.Workshop = ""
	}

	visits, err := h.Workshop.ListVisits(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics.Compute(visits, h.now(), opts))
}

// GetMonitor returns the snapshot of the last monitor tick.
func (h *Handler) GetMonitor(c *gin.Context) {
	c.JSON(http.StatusOK, h.Monitor.Latest())
}

// MonitorStream upgrades to a websocket that receives every new snapshot.
func (h *Handler) MonitorStream(c *gin.Context) {
	h.Hub.ServeWS(c.Writer, c.Request)
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
