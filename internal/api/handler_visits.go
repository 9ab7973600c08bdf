package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/model"
	"carretometro-backend/internal/transition"
	"carretometro-backend/internal/view"
	"carretometro-backend/internal/workshop"
)

const dateLayout = "2006-01-02"

var errBadQuery = errors.New("parâmetro inválido")

// visitRow is a visit with its derived durations.
type visitRow struct {
	model.Visit
	Times view.Times `json:"times"`
}

// parseDate reads a YYYY-MM-DD query value as a day in loc.
func parseDate(raw string, loc *time.Location) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: data %q, use AAAA-MM-DD", errBadQuery, raw)
	}
	return &day, nil
}

// filteredVisits applies the list query parameters to every stored visit.
func (h *Handler) filteredVisits(c *gin.Context, now time.Time) ([]model.Visit, error) {
	date, err := parseDate(c.Query("date"), h.Location)
	if err != nil {
		return nil, err
	}
	filters := view.Filters{
		Status:    c.Query("status"),
		OrderType: c.Query("orderType"),
		Workshop:  c.Query("workshop"),
		Fleet:     c.Query("fleetId"),
		Date:      date,
		Location:  h.Location,
	}
	sort := view.SortState{Key: c.Query("sortKey"), Direction: view.ParseDirection(c.Query("sortDir"))}
	if sort.Key != "" && !view.ValidKey(sort.Key) {
		return nil, fmt.Errorf("%w: ordenação %q", errBadQuery, sort.Key)
	}

	visits, err := h.Workshop.ListVisits(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return view.Build(visits, filters, sort, now), nil
}

// ListVisits returns the filtered and sorted visit list.
func (h *Handler) ListVisits(c *gin.Context) {
	now := h.now()
	visits, err := h.filteredVisits(c, now)
	if err != nil {
		h.respondError(c, err)
		return
	}
	rows := make([]visitRow, len(visits))
	for i, v := range visits {
		rows[i] = visitRow{Visit: v, Times: view.DerivedTimes(v, now)}
	}
	c.JSON(http.StatusOK, rows)
}

// ExportVisits downloads the filtered list as JSON, or as CSV with
// ?format=csv.
func (h *Handler) ExportVisits(c *gin.Context) {
	now := h.now()
	visits, err := h.filteredVisits(c, now)
	if err != nil {
		h.respondError(c, err)
		return
	}
	base := fmt.Sprintf("carretometro_visitas_%s", now.In(h.Location).Format(dateLayout))

	if c.Query("format") != "csv" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".json"))
		c.JSON(http.StatusOK, visits)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".csv"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := writeVisitsCSV(c.Writer, visits, h.Location); err != nil {
		h.logFor(c).WithError(err).Error("csv export failed")
	}
}

func (h *Handler) GetVisit(c *gin.Context) {
	visit, err := h.Workshop.GetVisit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visitRow{Visit: visit, Times: view.DerivedTimes(visit, h.now())})
}

func (h *Handler) CreateVisit(c *gin.Context) {
	var in workshop.Intake
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	visit, err := h.Workshop.CreateVisit(c.Request.Context(), actor(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, visit)
}

func (h *Handler) UpdateVisit(c *gin.Context) {
	var patch workshop.VisitPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	visit, err := h.Workshop.UpdateVisitDetails(c.Request.Context(), actor(c), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

// ChangeStatus applies a status transition, including the rollover.
func (h *Handler) ChangeStatus(c *gin.Context) {
	var req transition.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	visit, err := h.Workshop.ChangeStatus(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"visit":                     visit,
		"finishedWithPendingOrders": visit.FinishedWithPendingOrders(),
	})
}

func (h *Handler) DeleteVisit(c *gin.Context) {
	if err := h.Workshop.DeleteVisit(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
