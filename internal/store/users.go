package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carretometro-backend/internal/model"
)

// CountUsers returns the number of registered users.
func (s *gormStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// ListUsers returns every user ordered by name.
func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// FindUser looks a user up by name, ignoring case.
func (s *gormStore) FindUser(ctx context.Context, name string) (model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(&user).Error; err != nil {
		return model.User{}, notFound(err)
	}
	return user, nil
}

// CreateUser inserts a user unless the name is taken in any letter case.
func (s *gormStore) CreateUser(ctx context.Context, user model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).
			Where("LOWER(name) = ?", strings.ToLower(user.Name)).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check user %s: %w", user.Name, err)
		}
		if count > 0 {
			return ErrAlreadyExists
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", user.Name, err)
		}
		return nil
	})
}

// SaveUser inserts or replaces a user.
func (s *gormStore) SaveUser(ctx context.Context, user model.User) error {
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.Name, err)
	}
	return nil
}

// DeleteUser removes a user and any pending password reset.
func (s *gormStore) DeleteUser(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.User{}, "name = ?", name)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user %s: %w", name, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&model.PasswordResetRequest{}, "username = ?", name).Error; err != nil {
			return fmt.Errorf("failed to delete password reset of %s: %w", name, err)
		}
		return nil
	})
}

// ListPasswordResets returns pending password resets, oldest first.
func (s *gormStore) ListPasswordResets(ctx context.Context) ([]model.PasswordResetRequest, error) {
	var reqs []model.PasswordResetRequest
	if err := s.db.WithContext(ctx).Order("requested_at").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list password resets: %w", err)
	}
	return reqs, nil
}

// GetPasswordReset loads the pending reset of a user.
func (s *gormStore) GetPasswordReset(ctx context.Context, username string) (model.PasswordResetRequest, error) {
	var req model.PasswordResetRequest
	if err := s.db.WithContext(ctx).First(&req, "username = ?", username).Error; err != nil {
		return model.PasswordResetRequest{}, notFound(err)
	}
	return req, nil
}

// SavePasswordReset stores a reset, replacing any previous one of the user.
func (s *gormStore) SavePasswordReset(ctx context.Context, req model.PasswordResetRequest) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"new_password_plaintext", "requested_at"}),
	}).Create(&req).Error; err != nil {
		return fmt.Errorf("failed to save password reset of %s: %w", req.Username, err)
	}
	return nil
}

// DeletePasswordReset removes the pending reset of a user.
func (s *gormStore) DeletePasswordReset(ctx context.Context, username string) error {
	res := s.db.WithContext(ctx).Delete(&model.PasswordResetRequest{}, "username = ?", username)
	if res.Error != nil {
		return fmt.Errorf("failed to delete password reset of %s: %w", username, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAccessRequests returns access requests, newest first.
func (s *gormStore) ListAccessRequests(ctx context.Context) ([]model.AccessRequest, error) {
	var reqs []model.AccessRequest
	if err := s.db.WithContext(ctx).Order("requested_at DESC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list access requests: %w", err)
	}
	return reqs, nil
}

// GetAccessRequest loads an access request by ID.
func (s *gormStore) GetAccessRequest(ctx context.Context, id string) (model.AccessRequest, error) {
	var req model.AccessRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return model.AccessRequest{}, notFound(err)
	}
	return req, nil
}

// SaveAccessRequest inserts or replaces an access request.
func (s *gormStore) SaveAccessRequest(ctx context.Context, req model.AccessRequest) error {
	if err := s.db.WithContext(ctx).Save(&req).Error; err != nil {
		return fmt.Errorf("failed to save access request %s: %w", req.ID, err)
	}
	return nil
}
