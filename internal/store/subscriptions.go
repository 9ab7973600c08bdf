package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"carretometro-backend/internal/model"
)

// SaveSubscription creates or replaces a subscription by endpoint.
func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "workshop"}),
	}).Create(&sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// GetSubscription loads a subscription by endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return model.PushSubscription{}, notFound(err)
	}
	return sub, nil
}

// DeleteSubscription removes a subscription. Missing endpoints are not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "endpoint = ?", endpoint).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// SubscriptionsFor returns the subscriptions of workshop and the ones without a workshop.
func (s *gormStore) SubscriptionsFor(ctx context.Context, workshop model.Workshop) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	q := s.db.WithContext(ctx)
	if workshop == "" {
		q = q.Where("workshop = ? OR workshop IS NULL", "")
	} else {
		q = q.Where("workshop = ? OR workshop = ? OR workshop IS NULL", string(workshop), "")
	}
	if err := q.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
