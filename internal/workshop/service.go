// Package workshop is the application service behind the visit board. It
// loads visits and fleets from the store, runs the pure engines over them,
// persists the result and records what happened in the activity trail.
package workshop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"carretometro-backend/internal/audit"
	"carretometro-backend/internal/auth"
	"carretometro-backend/internal/model"
	"carretometro-backend/internal/parse"
	"carretometro-backend/internal/store"
	"carretometro-backend/internal/transition"
)

var (
	ErrForbidden        = errors.New("você não tem permissão para esta ação")
	ErrVisitNotFound    = errors.New("visita não encontrada")
	ErrFleetNotFound    = errors.New("frota não encontrada")
	ErrFleetExists      = errors.New("já existe uma frota com este número")
	ErrFleetIDRequired  = errors.New("o número da frota é obrigatório")
	ErrPlateRequired    = errors.New("a placa é obrigatória")
	ErrWorkshopRequired = errors.New("selecione uma oficina válida")
)

// Repository is the slice of the store the service needs.
type Repository interface {
	store.VisitRepository
	store.FleetRepository
}

// Intake is the new-visit form.
type Intake struct {
	FleetID          string           `json:"fleetId" binding:"required"`
	Plate            string           `json:"plate" binding:"required"`
	Carrier          string           `json:"carrier"`
	OrderType        model.OrderTypes `json:"orderType"`
	Workshop         model.Workshop   `json:"workshop"`
	ArrivalTimestamp *int64           `json:"arrivalTimestamp"`
	Notes            string           `json:"notes"`
	ImageURL         string           `json:"imageUrl"`
}

// VisitPatch lists the descriptive visit fields that may change without a
// status transition. Nil fields are left untouched.
type VisitPatch struct {
	Plate            *string                `json:"plate"`
	Notes            *string                `json:"notes"`
	ImageURL         *string                `json:"imageUrl"`
	Workshop         *model.Workshop        `json:"workshop"`
	BoxNumber        *string                `json:"boxNumber"`
	ServicePerformed *string                `json:"servicePerformed"`
	PartUsed         *string                `json:"partUsed"`
	PartQuantity     *int                   `json:"partQuantity"`
	CalibrationData  *model.CalibrationData `json:"calibrationData"`
}

// UnmarshalJSON accepts partQuantity as a number or a numeric string.
func (p *VisitPatch) UnmarshalJSON(data []byte) error {
	type plain VisitPatch
	aux := struct {
		*plain
		PartQuantity any `json:"partQuantity"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.PartQuantity = parse.Quantity(aux.PartQuantity)
	return nil
}

// DeleteFleetResult tells the caller why a fleet was kept.
type DeleteFleetResult struct {
	Success   bool `json:"success"`
	HasVisits bool `json:"hasVisits"`
}

// Service implements visit intake, status changes and fleet management.
type Service struct {
	repo  Repository
	audit audit.Recorder
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewService wires the workshop service.
func NewService(repo Repository, rec audit.Recorder, log logrus.FieldLogger) *Service {
	return &Service{
		repo:  repo,
		audit: rec,
		log:   log.WithField("component", "workshop"),
		now:   time.Now,
	}
}

// ListVisits returns every stored visit.
func (s *Service) ListVisits(ctx context.Context) ([]model.Visit, error) {
	return s.repo.ListVisits(ctx)
}

// GetVisit loads one visit.
func (s *Service) GetVisit(ctx context.Context, id string) (model.Visit, error) {
	visit, err := s.repo.GetVisit(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Visit{}, ErrVisitNotFound
	}
	return visit, err
}

// CreateVisit registers a vehicle arriving at the workshop. Unknown fleets
// are created on the fly with the default equipment type.
func (s *Service) CreateVisit(ctx context.Context, actor model.User, in Intake) (model.Visit, error) {
	if !auth.CanEdit(actor.Role) {
		return model.Visit{}, ErrForbidden
	}
	fleetID := normalizeFleetID(in.FleetID)
	if fleetID == "" {
		return model.Visit{}, ErrFleetIDRequired
	}
	if strings.TrimSpace(in.Plate) == "" {
		return model.Visit{}, ErrPlateRequired
	}
	orders, err := model.NewOrderTypes(in.OrderType.Strings()...)
	if err != nil {
		return model.Visit{}, err
	}
	if !in.Workshop.Valid() {
		return model.Visit{}, ErrWorkshopRequired
	}

	now := s.now().UnixMilli()
	arrival := now
	if in.ArrivalTimestamp != nil && *in.ArrivalTimestamp > 0 {
		arrival = *in.ArrivalTimestamp
	}

	fleet := model.Fleet{
		ID:            fleetID,
		Plate:         parse.NormalizePlate(in.Plate),
		Carrier:       strings.ToUpper(strings.TrimSpace(in.Carrier)),
		EquipmentType: model.DefaultEquipmentType,
	}
	existing, err := s.repo.GetFleet(ctx, fleetID)
	switch {
	case err == nil:
		fleet = existing
	case !errors.Is(err, store.ErrNotFound):
		return model.Visit{}, err
	}

	visit := model.Visit{
		FleetID:          fleetID,
		Plate:            parse.NormalizePlate(in.Plate),
		EquipmentType:    fleet.EquipmentType,
		OrderType:        orders,
		Status:           model.StatusQueued,
		ArrivalTimestamp: arrival,
		Workshop:         in.Workshop,
		Notes:            strings.TrimSpace(in.Notes),
		ImageURL:         strings.TrimSpace(in.ImageURL),
		ServiceHistory:   []model.ServiceLog{},
		CreatedBy:        actor.Name,
		CreatedAt:        now,
	}
	if err := s.repo.CreateVisit(ctx, &visit, fleet); err != nil {
		return model.Visit{}, fmt.Errorf("failed to create visit: %w", err)
	}

	s.audit.Record(ctx, actor.Name, model.AuditCreate,
		fmt.Sprintf("Criou a visita %s para a frota %s", visit.ID, visit.FleetID))
	s.log.WithFields(logrus.Fields{"visit": visit.ID, "fleet": visit.FleetID}).Info("visit created")
	return visit, nil
}

// ChangeStatus applies a status transition and persists the result. A
// request without a workshop keeps the visit's current one.
func (s *Service) ChangeStatus(ctx context.Context, actor model.User, id string, req transition.Request) (model.Visit, error) {
	if !auth.CanEdit(actor.Role) {
		return model.Visit{}, ErrForbidden
	}
	current, err := s.GetVisit(ctx, id)
	if err != nil {
		return model.Visit{}, err
	}

	if req.Workshop == "" {
		req.Workshop = current.Workshop
	} else if !req.Workshop.Valid() {
		return model.Visit{}, ErrWorkshopRequired
	}

	now := s.now()
	next, err := transition.Apply(current, req, now)
	if err != nil {
		return model.Visit{}, err
	}
	stamp(&next, actor, now)
	if err := s.repo.UpdateVisit(ctx, next); err != nil {
		return model.Visit{}, fmt.Errorf("failed to save visit %s: %w", id, err)
	}

	details := fmt.Sprintf("Alterou status da visita %s de %s para %s", id, current.Status, next.Status)
	if req.Status == model.StatusRollover {
		details = fmt.Sprintf("Movimentou a visita %s: concluiu %s, restam %s",
			id, req.OrderTypeForService, strings.Join(next.OrderType.Strings(), ", "))
	}
	s.audit.Record(ctx, actor.Name, model.AuditUpdate, details)

	entry := s.log.WithFields(logrus.Fields{"visit": id, "from": current.Status, "to": next.Status})
	if next.FinishedWithPendingOrders() {
		entry.WithField("pending", next.OrderType.Strings()).Warn("visit finished with pending order types")
	} else {
		entry.Info("visit status changed")
	}
	return next, nil
}

// UpdateVisitDetails edits descriptive fields of a visit without touching
// its status or lifecycle timestamps.
func (s *Service) UpdateVisitDetails(ctx context.Context, actor model.User, id string, patch VisitPatch) (model.Visit, error) {
	if !auth.CanEdit(actor.Role) {
		return model.Visit{}, ErrForbidden
	}
	if patch.Workshop != nil && *patch.Workshop != "" && !patch.Workshop.Valid() {
		return model.Visit{}, ErrWorkshopRequired
	}
	current, err := s.GetVisit(ctx, id)
	if err != nil {
		return model.Visit{}, err
	}

	next := current.Clone()
	if patch.Plate != nil {
		next.Plate = parse.NormalizePlate(*patch.Plate)
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	if patch.ImageURL != nil {
		next.ImageURL = *patch.ImageURL
	}
	if patch.Workshop != nil {
		next.Workshop = *patch.Workshop
	}
	if patch.BoxNumber != nil {
		next.BoxNumber = *patch.BoxNumber
		if next.BoxNumber != "" && next.BoxEntryTimestamp == nil {
			next.BoxEntryTimestamp = model.Ptr(s.now().UnixMilli())
		}
	}
	if patch.ServicePerformed != nil {
		next.ServicePerformed = *patch.ServicePerformed
	}
	if patch.PartUsed != nil {
		next.PartUsed = *patch.PartUsed
	}
	if patch.PartQuantity != nil {
		next.PartQuantity = model.Ptr(*patch.PartQuantity)
	}
	if patch.CalibrationData != nil {
		next.CalibrationData = patch.CalibrationData.Clone()
	}

	stamp(&next, actor, s.now())
	if err := s.repo.UpdateVisit(ctx, next); err != nil {
		return model.Visit{}, fmt.Errorf("failed to save visit %s: %w", id, err)
	}
	s.audit.Record(ctx, actor.Name, model.AuditUpdate, fmt.Sprintf("Atualizou os dados da visita %s", id))
	return next, nil
}

// DeleteVisit removes a visit. Only a few named accounts may do this.
func (s *Service) DeleteVisit(ctx context.Context, actor model.User, id string) error {
	if !auth.CanDeleteVisit(actor) {
		return ErrForbidden
	}
	visit, err := s.GetVisit(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteVisit(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrVisitNotFound
		}
		return err
	}
	s.audit.Record(ctx, actor.Name, model.AuditDelete,
		fmt.Sprintf("Excluiu a visita %s da frota %s.", id, visit.FleetID))
	return nil
}

func stamp(v *model.Visit, actor model.User, now time.Time) {
	v.UpdatedBy = actor.Name
	v.UpdatedAt = model.Ptr(now.UnixMilli())
}

func normalizeFleetID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
