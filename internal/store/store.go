package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"carretometro-backend/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when creating a record whose key is taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrFleetHasVisits is returned when deleting a fleet that is still referenced by visits.
	ErrFleetHasVisits = errors.New("fleet has visits")
)

// VisitRepository persists visits.
type VisitRepository interface {
	ListVisits(ctx context.Context) ([]model.Visit, error)
	ListVisitsByFleet(ctx context.Context, fleetID string) ([]model.Visit, error)
	GetVisit(ctx context.Context, id string) (model.Visit, error)
	// CreateVisit assigns the next visit ID, creates the fleet when it is
	// unknown and inserts the visit, all in one transaction.
	CreateVisit(ctx context.Context, visit *model.Visit, fleet model.Fleet) error
	SaveVisits(ctx context.Context, visits []model.Visit) error
	UpdateVisit(ctx context.Context, visit model.Visit) error
	DeleteVisit(ctx context.Context, id string) error
}

// FleetRepository persists fleets.
type FleetRepository interface {
	ListFleets(ctx context.Context) ([]model.Fleet, error)
	GetFleet(ctx context.Context, id string) (model.Fleet, error)
	SaveFleets(ctx context.Context, fleets []model.Fleet) error
	CreateFleet(ctx context.Context, fleet model.Fleet) error
	UpdateFleet(ctx context.Context, fleet model.Fleet) error
	DeleteFleet(ctx context.Context, id string) error
	SearchFleets(ctx context.Context, query string) ([]model.Fleet, error)
	FleetStats(ctx context.Context, id string) (FleetStats, error)
}

// UserRepository persists users and their pending requests.
type UserRepository interface {
	CountUsers(ctx context.Context) (int64, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	FindUser(ctx context.Context, name string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) error
	SaveUser(ctx context.Context, user model.User) error
	DeleteUser(ctx context.Context, name string) error

	ListPasswordResets(ctx context.Context) ([]model.PasswordResetRequest, error)
	GetPasswordReset(ctx context.Context, username string) (model.PasswordResetRequest, error)
	SavePasswordReset(ctx context.Context, req model.PasswordResetRequest) error
	DeletePasswordReset(ctx context.Context, username string) error

	ListAccessRequests(ctx context.Context) ([]model.AccessRequest, error)
	GetAccessRequest(ctx context.Context, id string) (model.AccessRequest, error)
	SaveAccessRequest(ctx context.Context, req model.AccessRequest) error
}

// AuditRepository persists the activity trail.
type AuditRepository interface {
	// AppendAudit inserts entry and drops the oldest rows beyond limit.
	AppendAudit(ctx context.Context, entry model.AuditEntry, limit int) error
	ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)
	ClearAudit(ctx context.Context) error
}

// SubscriptionRepository persists web push subscriptions.
type SubscriptionRepository interface {
	SaveSubscription(ctx context.Context, sub model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	// SubscriptionsFor returns subscriptions scoped to workshop plus the unscoped ones.
	SubscriptionsFor(ctx context.Context, workshop model.Workshop) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	VisitRepository
	FleetRepository
	UserRepository
	AuditRepository
	SubscriptionRepository
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
