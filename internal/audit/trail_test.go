package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carretometro-backend/internal/logger"
	"carretometro-backend/internal/model"
)

type mockAuditRepo struct {
	appended  []model.AuditEntry
	stored    []model.AuditEntry
	appendErr error
	clearErr  error
	cleared   bool
}

func (m *mockAuditRepo) AppendAudit(_ context.Context, entry model.AuditEntry, _ int) error {
	m.appended = append(m.appended, entry)
	return m.appendErr
}

func (m *mockAuditRepo) ListAudit(_ context.Context, _ int) ([]model.AuditEntry, error) {
	return m.stored, nil
}

func (m *mockAuditRepo) ClearAudit(_ context.Context) error {
	m.cleared = true
	return m.clearErr
}

func fixedTrail(repo *mockAuditRepo) *Trail {
	var tr *Trail
	if repo == nil {
		tr = NewTrail(nil, logger.Discard())
	} else {
		tr = NewTrail(repo, logger.Discard())
	}
	tr.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return tr
}

func TestTrail_Record(t *testing.T) {
	repo := &mockAuditRepo{}
	tr := fixedTrail(repo)

	entry := tr.Record(context.Background(), "admin01", model.AuditCreate, "Criou a visita V001")

	_, err := uuid.Parse(entry.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000_000), entry.Timestamp)
	assert.Equal(t, "admin01", entry.User)
	require.Len(t, repo.appended, 1)
	assert.Equal(t, entry, repo.appended[0])
	assert.Equal(t, []model.AuditEntry{entry}, tr.Entries())
}

func TestTrail_NewestFirstAndCapped(t *testing.T) {
	tr := fixedTrail(nil)
	for i := 0; i < Limit+20; i++ {
		tr.Record(context.Background(), "admin01", model.AuditUpdate, fmt.Sprintf("entry %d", i))
	}

	entries := tr.Entries()
	require.Len(t, entries, Limit)
	assert.Equal(t, fmt.Sprintf("entry %d", Limit+19), entries[0].Details)
	assert.Equal(t, "entry 20", entries[Limit-1].Details)
}

func TestTrail_PersistFailureIsIgnored(t *testing.T) {
	repo := &mockAuditRepo{appendErr: errors.New("disk full")}
	tr := fixedTrail(repo)

	tr.Record(context.Background(), "admin01", model.AuditLogin, "Login")
	assert.Len(t, tr.Entries(), 1)
}

func TestTrail_LoadAndClear(t *testing.T) {
	stored := []model.AuditEntry{{ID: "b", Timestamp: 2}, {ID: "a", Timestamp: 1}}
	repo := &mockAuditRepo{stored: stored}
	tr := fixedTrail(repo)

	require.NoError(t, tr.Load(context.Background()))
	assert.Equal(t, stored, tr.Entries())

	require.NoError(t, tr.Clear(context.Background()))
	assert.True(t, repo.cleared)
	assert.Empty(t, tr.Entries())

	repo.clearErr = errors.New("locked")
	tr.Record(context.Background(), "admin01", model.AuditDelete, "x")
	assert.Error(t, tr.Clear(context.Background()))
	assert.Len(t, tr.Entries(), 1, "entries survive a failed clear")
}
