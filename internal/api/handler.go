package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"carretometro-backend/internal/assistant"
	"carretometro-backend/internal/audit"
	"carretometro-backend/internal/auth"
	"carretometro-backend/internal/logger"
	"carretometro-backend/internal/model"
	"carretometro-backend/internal/monitor"
	"carretometro-backend/internal/mw"
	"carretometro-backend/internal/store"
	"carretometro-backend/internal/transition"
	"carretometro-backend/internal/workshop"
)

// Trail is the activity trail as seen by the API.
type Trail interface {
	audit.Recorder
	Entries() []model.AuditEntry
	Clear(ctx context.Context) error
}

// Deps are the services behind the HTTP API.
type Deps struct {
	Workshop      *workshop.Service
	Auth          *auth.Service
	Trail         Trail
	Assistant     *assistant.Client
	Monitor       *monitor.Service
	Hub           *monitor.Hub
	Collectors    *monitor.Collectors
	Subscriptions store.SubscriptionRepository
	Webpush       *webpush.Options
	Location      *time.Location
	Log           logrus.FieldLogger
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	Deps
	now func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	return &Handler{Deps: d, now: time.Now}
}

// actor returns the authenticated user. Routes that call it are always
// behind mw.AuthRequired.
func actor(c *gin.Context) model.User {
	user, _ := mw.CurrentUser(c)
	return user
}

// statusOf maps service errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, workshop.ErrForbidden),
		errors.Is(err, auth.ErrForbidden),
		errors.Is(err, auth.ErrImmutableUser),
		errors.Is(err, auth.ErrUserBlocked):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, workshop.ErrVisitNotFound),
		errors.Is(err, workshop.ErrFleetNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrRequestNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workshop.ErrFleetExists),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, auth.ErrDuplicateRequest),
		errors.Is(err, auth.ErrRequestNotPending),
		errors.Is(err, transition.ErrVisitFinished):
		return http.StatusConflict
	case errors.Is(err, workshop.ErrFleetIDRequired),
		errors.Is(err, workshop.ErrPlateRequired),
		errors.Is(err, workshop.ErrWorkshopRequired),
		errors.Is(err, model.ErrNoOrderTypes),
		errors.Is(err, auth.ErrInvalidName),
		errors.Is(err, auth.ErrMissingIdentity),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrInvalidStatus),
		errors.Is(err, transition.ErrOrderTypeForServiceRequired),
		errors.Is(err, transition.ErrOrderTypeNotInVisit),
		errors.Is(err, transition.ErrRolloverNeedsMultipleOrders),
		errors.Is(err, transition.ErrUnknownStatus),
		errors.Is(err, assistant.ErrUnknownAnalysis),
		errors.Is(err, errBadQuery):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Unexpected errors are logged
// and answered with a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logFor(c).WithError(err).Error("request failed")
		c.JSON(status, gin.H{"error": "erro interno, tente novamente"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// logFor returns the request-scoped logger.
func (h *Handler) logFor(c *gin.Context) logrus.FieldLogger {
	return logger.FromContext(c.Request.Context(), h.Log)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
