package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"carretometro-backend/internal/model"
)

// AppendAudit inserts entry and trims the table to the newest limit rows.
// A limit of zero or less keeps everything.
func (s *gormStore) AppendAudit(ctx context.Context, entry model.AuditEntry, limit int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		if limit <= 0 {
			return nil
		}
		keep := tx.Model(&model.AuditEntry{}).
			Select("id").
			Order("occurred_at DESC, id DESC").
			Limit(limit)
		if err := tx.Where("id NOT IN (?)", keep).Delete(&model.AuditEntry{}).Error; err != nil {
			return fmt.Errorf("failed to trim audit entries: %w", err)
		}
		return nil
	})
}

// ListAudit returns up to limit entries, newest first.
func (s *gormStore) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	q := s.db.WithContext(ctx).Order("occurred_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// ClearAudit removes every entry.
func (s *gormStore) ClearAudit(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.AuditEntry{}).Error; err != nil {
		return fmt.Errorf("failed to clear audit entries: %w", err)
	}
	return nil
}
