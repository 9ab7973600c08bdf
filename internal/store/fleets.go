package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carretometro-backend/internal/model"
)

// ListFleets returns every fleet ordered by ID.
func (s *gormStore) ListFleets(ctx context.Context) ([]model.Fleet, error) {
	var fleets []model.Fleet
	if err := s.db.WithContext(ctx).Order("id").Find(&fleets).Error; err != nil {
		return nil, fmt.Errorf("failed to list fleets: %w", err)
	}
	return fleets, nil
}

// GetFleet loads a fleet by ID.
func (s *gormStore) GetFleet(ctx context.Context, id string) (model.Fleet, error) {
	var fleet model.Fleet
	if err := s.db.WithContext(ctx).First(&fleet, "id = ?", id).Error; err != nil {
		return model.Fleet{}, notFound(err)
	}
	return fleet, nil
}

// SaveFleets upserts fleets by ID.
func (s *gormStore) SaveFleets(ctx context.Context, fleets []model.Fleet) error {
	if len(fleets) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plate", "equipment_type", "carrier"}),
	}).Create(&fleets).Error; err != nil {
		return fmt.Errorf("batch upsert fleets failed: %w", err)
	}
	return nil
}

// CreateFleet inserts a new fleet, refusing IDs already in use.
func (s *gormStore) CreateFleet(ctx context.Context, fleet model.Fleet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Fleet{}).Where("id = ?", fleet.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check fleet %s: %w", fleet.ID, err)
		}
		if count > 0 {
			return ErrAlreadyExists
		}
		if err := tx.Create(&fleet).Error; err != nil {
			return fmt.Errorf("failed to create fleet %s: %w", fleet.ID, err)
		}
		return nil
	})
}

// UpdateFleet overwrites an existing fleet.
func (s *gormStore) UpdateFleet(ctx context.Context, fleet model.Fleet) error {
	res := s.db.WithContext(ctx).Model(&fleet).Select("*").Updates(&fleet)
	if res.Error != nil {
		return fmt.Errorf("failed to update fleet %s: %w", fleet.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFleet removes a fleet unless a visit still references it.
func (s *gormStore) DeleteFleet(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Visit{}).Where("fleet_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count visits of fleet %s: %w", id, err)
		}
		if count > 0 {
			return ErrFleetHasVisits
		}

		res := tx.Delete(&model.Fleet{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete fleet %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SearchFleets matches query against ID, plate and carrier, case-insensitively.
// An empty query lists every fleet.
func (s *gormStore) SearchFleets(ctx context.Context, query string) ([]model.Fleet, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.ListFleets(ctx)
	}

	pattern := "%" + query + "%"
	var fleets []model.Fleet
	if err := s.db.WithContext(ctx).
		Where("LOWER(id) LIKE ? OR LOWER(plate) LIKE ? OR LOWER(carrier) LIKE ?", pattern, pattern, pattern).
		Order("id").
		Find(&fleets).Error; err != nil {
		return nil, fmt.Errorf("failed to search fleets: %w", err)
	}
	return fleets, nil
}

// FleetStats counts the visits of a fleet and reports the latest arrival.
func (s *gormStore) FleetStats(ctx context.Context, id string) (FleetStats, error) {
	stats := FleetStats{FleetID: id}
	if err := s.db.WithContext(ctx).
		Model(&model.Visit{}).
		Select("COUNT(*) AS total_visits, MAX(arrival_timestamp) AS last_visit_date").
		Where("fleet_id = ?", id).
		Scan(&stats).Error; err != nil {
		return FleetStats{}, fmt.Errorf("failed to compute stats of fleet %s: %w", id, err)
	}
	stats.FleetID = id
	return stats, nil
}
