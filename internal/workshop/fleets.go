package workshop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carretometro-backend/internal/auth"
	"carretometro-backend/internal/model"
	"carretometro-backend/internal/parse"
	"carretometro-backend/internal/store"
)

func (s *Service) ListFleets(ctx context.Context) ([]model.Fleet, error) {
	return s.repo.ListFleets(ctx)
}

// SearchFleets matches query against fleet number, plate and carrier. An
// empty query lists every fleet.
func (s *Service) SearchFleets(ctx context.Context, query string) ([]model.Fleet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListFleets(ctx)
	}
	return s.repo.SearchFleets(ctx, query)
}

func (s *Service) GetFleet(ctx context.Context, id string) (model.Fleet, error) {
	fleet, err := s.repo.GetFleet(ctx, normalizeFleetID(id))
	if errors.Is(err, store.ErrNotFound) {
		return model.Fleet{}, ErrFleetNotFound
	}
	return fleet, err
}

// CreateFleet registers a vehicle ahead of its first visit.
func (s *Service) CreateFleet(ctx context.Context, actor model.User, fleet model.Fleet) (model.Fleet, error) {
	if !auth.CanEdit(actor.Role) {
		return model.Fleet{}, ErrForbidden
	}
	fleet = normalizeFleet(fleet)
	if fleet.ID == "" {
		return model.Fleet{}, ErrFleetIDRequired
	}
	if err := s.repo.CreateFleet(ctx, fleet); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return model.Fleet{}, ErrFleetExists
		}
		return model.Fleet{}, err
	}
	s.audit.Record(ctx, actor.Name, model.AuditCreate, fmt.Sprintf("Cadastrou a frota %s.", fleet.ID))
	return fleet, nil
}

// UpdateFleet replaces the descriptive fields of a fleet.
func (s *Service) UpdateFleet(ctx context.Context, actor model.User, fleet model.Fleet) (model.Fleet, error) {
	if !auth.CanEdit(actor.Role) {
		return model.Fleet{}, ErrForbidden
	}
	fleet = normalizeFleet(fleet)
	if err := s.repo.UpdateFleet(ctx, fleet); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Fleet{}, ErrFleetNotFound
		}
		return model.Fleet{}, err
	}
	s.audit.Record(ctx, actor.Name, model.AuditUpdate, fmt.Sprintf("Atualizou a frota %s.", fleet.ID))
	return fleet, nil
}

// DeleteFleet removes a fleet that no visit references. A referenced fleet
// is kept and reported with HasVisits.
func (s *Service) DeleteFleet(ctx context.Context, actor model.User, id string) (DeleteFleetResult, error) {
	if !auth.CanEdit(actor.Role) {
		return DeleteFleetResult{}, ErrForbidden
	}
	id = normalizeFleetID(id)
	err := s.repo.DeleteFleet(ctx, id)
	switch {
	case errors.Is(err, store.ErrFleetHasVisits):
		s.log.WithField("fleet", id).Info("fleet kept, visits still reference it")
		return DeleteFleetResult{Success: false, HasVisits: true}, nil
	case errors.Is(err, store.ErrNotFound):
		return DeleteFleetResult{}, ErrFleetNotFound
	case err != nil:
		return DeleteFleetResult{}, err
	}
	s.audit.Record(ctx, actor.Name, model.AuditDelete, fmt.Sprintf("Excluiu a frota %s.", id))
	return DeleteFleetResult{Success: true}, nil
}

// FleetStats counts the visits of a fleet and reports the latest arrival.
func (s *Service) FleetStats(ctx context.Context, id string) (store.FleetStats, error) {
	return s.repo.FleetStats(ctx, normalizeFleetID(id))
}

// FleetHistory returns the visits of a fleet, newest first.
func (s *Service) FleetHistory(ctx context.Context, id string) ([]model.Visit, error) {
	return s.repo.ListVisitsByFleet(ctx, normalizeFleetID(id))
}

func normalizeFleet(f model.Fleet) model.Fleet {
	f.ID = normalizeFleetID(f.ID)
	f.Plate = parse.NormalizePlate(f.Plate)
	f.Carrier = strings.ToUpper(strings.TrimSpace(f.Carrier))
	f.EquipmentType = strings.TrimSpace(f.EquipmentType)
	if f.EquipmentType == "" {
		f.EquipmentType = model.DefaultEquipmentType
	}
	return f
}
