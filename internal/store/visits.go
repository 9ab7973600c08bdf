package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carretometro-backend/internal/model"
	"carretometro-backend/internal/parse"
)

// ListVisits returns every visit, most recent arrival first.
func (s *gormStore) ListVisits(ctx context.Context) ([]model.Visit, error) {
	var visits []model.Visit
	if err := s.db.WithContext(ctx).Order("arrival_timestamp DESC, id DESC").Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

// ListVisitsByFleet returns the visits of one fleet, most recent arrival first.
func (s *gormStore) ListVisitsByFleet(ctx context.Context, fleetID string) ([]model.Visit, error) {
	var visits []model.Visit
	if err := s.db.WithContext(ctx).
		Where("fleet_id = ?", fleetID).
		Order("arrival_timestamp DESC").
		Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("failed to list visits of fleet %s: %w", fleetID, err)
	}
	return visits, nil
}

// GetVisit loads a visit by ID.
func (s *gormStore) GetVisit(ctx context.Context, id string) (model.Visit, error) {
	var visit model.Visit
	if err := s.db.WithContext(ctx).First(&visit, "id = ?", id).Error; err != nil {
		return model.Visit{}, notFound(err)
	}
	return visit, nil
}

// CreateVisit assigns the next sequential ID, inserts the fleet if it does
// not exist yet and inserts the visit.
func (s *gormStore) CreateVisit(ctx context.Context, visit *model.Visit, fleet model.Fleet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&model.Visit{}).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to read visit ids: %w", err)
		}
		visit.ID = parse.NextVisitID(ids)

		if fleet.ID != "" {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&fleet).Error; err != nil {
				return fmt.Errorf("failed to create fleet %s: %w", fleet.ID, err)
			}
		}

		if err := tx.Create(visit).Error; err != nil {
			return fmt.Errorf("failed to create visit %s: %w", visit.ID, err)
		}
		return nil
	})
}

// SaveVisits upserts visits by ID. Last write wins.
func (s *gormStore) SaveVisits(ctx context.Context, visits []model.Visit) error {
	if len(visits) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&visits).Error; err != nil {
		return fmt.Errorf("batch upsert visits failed: %w", err)
	}
	return nil
}

// UpdateVisit overwrites every column of an existing visit.
func (s *gormStore) UpdateVisit(ctx context.Context, visit model.Visit) error {
	res := s.db.WithContext(ctx).Model(&visit).Select("*").Updates(&visit)
	if res.Error != nil {
		return fmt.Errorf("failed to update visit %s: %w", visit.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVisit removes a visit.
func (s *gormStore) DeleteVisit(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Visit{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete visit %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
