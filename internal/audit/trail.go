// Package audit keeps the activity trail: a capped, newest-first list of
// user actions mirrored to the store.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"carretometro-backend/internal/model"
	"carretometro-backend/internal/store"
)

// Limit is the maximum number of entries kept.
const Limit = 500

// Recorder records user actions.
type Recorder interface {
	Record(ctx context.Context, actor string, action model.AuditAction, details string) model.AuditEntry
}

// Trail is the in-memory activity trail. Entries are persisted through repo
// when one is given.
type Trail struct {
	mu      sync.RWMutex
	entries []model.AuditEntry
	repo    store.AuditRepository
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewTrail creates an empty trail. repo may be nil.
func NewTrail(repo store.AuditRepository, log logrus.FieldLogger) *Trail {
	return &Trail{
		repo: repo,
		log:  log.WithField("component", "audit"),
		now:  time.Now,
	}
}

// Load replaces the in-memory entries with the persisted ones.
func (t *Trail) Load(ctx context.Context) error {
	if t.repo == nil {
		return nil
	}
	entries, err := t.repo.ListAudit(ctx, Limit)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

// Record prepends a new entry, evicting the oldest beyond Limit. Persistence
// failures are logged and otherwise ignored.
func (t *Trail) Record(ctx context.Context, actor string, action model.AuditAction, details string) model.AuditEntry {
	entry := model.AuditEntry{
		ID:        newID(),
		Timestamp: t.now().UnixMilli(),
		User:      actor,
		Action:    action,
		Details:   details,
	}

	t.mu.Lock()
	next := make([]model.AuditEntry, 0, min(len(t.entries)+1, Limit))
	next = append(next, entry)
	for _, e := range t.entries {
		if len(next) == Limit {
			break
		}
		next = append(next, e)
	}
	t.entries = next
	t.mu.Unlock()

	if t.repo != nil {
		if err := t.repo.AppendAudit(ctx, entry, Limit); err != nil {
			t.log.WithError(err).WithField("action", action).Warn("failed to persist audit entry")
		}
	}
	return entry
}

// Entries returns a copy of the trail, newest first.
func (t *Trail) Entries() []model.AuditEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.AuditEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Clear empties the trail.
func (t *Trail) Clear(ctx context.Context) error {
	if t.repo != nil {
		if err := t.repo.ClearAudit(ctx); err != nil {
			return err
		}
	}
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
	return nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
