package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carretometro-backend/config"
	"carretometro-backend/internal/logger"
	"carretometro-backend/internal/metrics"
	"carretometro-backend/internal/model"
	"carretometro-backend/internal/store"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type mockVisits struct {
	store.VisitRepository
	ListVisitsFunc func(ctx context.Context) ([]model.Visit, error)
}

func (m *mockVisits) ListVisits(ctx context.Context) ([]model.Visit, error) {
	return m.ListVisitsFunc(ctx)
}

type mockDispatcher struct {
	mu       sync.Mutex
	breaches []metrics.Breach
}

func (m *mockDispatcher) Dispatch(b metrics.Breach) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaches = append(m.breaches, b)
	return true
}

func (m *mockDispatcher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.breaches)
}

func visitsFixture() []model.Visit {
	return []model.Visit{
		{
			ID: "V001", FleetID: "F1", Status: model.StatusInMaintenance,
			OrderType:                 model.OrderTypes{model.OrderCorrective},
			ArrivalTimestamp:          now.Add(-12 * time.Hour).UnixMilli(),
			MaintenanceStartTimestamp: model.Ptr(now.Add(-11 * time.Hour).UnixMilli()),
		},
		{
			ID: "V002", FleetID: "F2", Status: model.StatusQueued,
			OrderType:        model.OrderTypes{model.OrderInspection},
			ArrivalTimestamp: now.Add(-time.Hour).UnixMilli(),
		},
	}
}

func newTestMonitor(visits *[]model.Visit) (*Service, *mockDispatcher, *Collectors) {
	repo := &mockVisits{ListVisitsFunc: func(ctx context.Context) ([]model.Visit, error) {
		return *visits, nil
	}}
	dispatcher := &mockDispatcher{}
	collectors := NewCollectors()
	cfg := config.MonitorConfig{Enabled: true, Interval: 10 * time.Millisecond, Location: time.UTC}
	svc := NewService(cfg, repo, dispatcher, nil, collectors, logger.Discard())
	svc.now = func() time.Time { return now }
	return svc, dispatcher, collectors
}

func TestService_RecomputeOnce(t *testing.T) {
	visits := visitsFixture()
	svc, dispatcher, collectors := newTestMonitor(&visits)

	snap, err := svc.RecomputeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap, svc.Latest())
	assert.Equal(t, 1, snap.StatusCounts[model.StatusQueued])
	assert.Equal(t, 1, snap.StatusCounts[model.StatusInMaintenance])

	require.Equal(t, 1, dispatcher.count())
	assert.Equal(t, "V001", dispatcher.breaches[0].VisitID)
	assert.Equal(t, metrics.BucketCorrective, dispatcher.breaches[0].Bucket)

	assert.Equal(t, float64(1), testutil.ToFloat64(collectors.VisitsByStatus.WithLabelValues(string(model.StatusQueued))))
	assert.Equal(t, float64(11*3600), testutil.ToFloat64(collectors.BucketAverage.WithLabelValues(string(metrics.BucketCorrective))))
	assert.Equal(t, float64(1), testutil.ToFloat64(collectors.BreachesTotal.WithLabelValues(string(metrics.BucketCorrective))))
}

func TestService_BreachesNotifiedOnce(t *testing.T) {
	visits := visitsFixture()
	svc, dispatcher, collectors := newTestMonitor(&visits)
	ctx := context.Background()

	_, err := svc.RecomputeOnce(ctx)
	require.NoError(t, err)
	_, err = svc.RecomputeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dispatcher.count(), "an ongoing breach is reported once")

	visits[0].Status = model.StatusFinished
	visits[0].FinishTimestamp = model.Ptr(now.UnixMilli())
	_, err = svc.RecomputeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dispatcher.count())

	visits[1].ArrivalTimestamp = now.Add(-11 * time.Hour).UnixMilli()
	_, err = svc.RecomputeOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, dispatcher.count())
	assert.Equal(t, metrics.BucketQueue, dispatcher.breaches[1].Bucket)
	assert.Equal(t, float64(1), testutil.ToFloat64(collectors.BreachesTotal.WithLabelValues(string(metrics.BucketQueue))))
}

func TestService_RecomputeKeepsSnapshotOnError(t *testing.T) {
	visits := visitsFixture()
	svc, _, _ := newTestMonitor(&visits)
	ctx := context.Background()

	first, err := svc.RecomputeOnce(ctx)
	require.NoError(t, err)

	svc.visits = &mockVisits{ListVisitsFunc: func(ctx context.Context) ([]model.Visit, error) {
		return nil, errors.New("database is locked")
	}}
	_, err = svc.RecomputeOnce(ctx)
	assert.Error(t, err)
	assert.Equal(t, first, svc.Latest())
}

func TestService_RunStopsOnCancel(t *testing.T) {
	visits := visitsFixture()
	svc, _, _ := newTestMonitor(&visits)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return svc.Latest().GeneratedAt != 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestService_RunDisabled(t *testing.T) {
	visits := visitsFixture()
	svc, _, _ := newTestMonitor(&visits)
	svc.cfg.Enabled = false

	svc.Run(context.Background())
	assert.Zero(t, svc.Latest().GeneratedAt)
}

func TestHub_BroadcastsSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.Discard())
	go hub.Run(ctx)

	visits := visitsFixture()
	svc, _, _ := newTestMonitor(&visits)
	svc.hub = hub

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	_, err := svc.RecomputeOnce(ctx)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, now.UnixMilli(), msg.Data.GeneratedAt)
	assert.Equal(t, 1, hub.Clients())

	visits[1].Status = model.StatusInMaintenance
	visits[1].MaintenanceStartTimestamp = model.Ptr(now.UnixMilli())
	_, err = svc.RecomputeOnce(ctx)
	require.NoError(t, err)

	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, 2, msg.Data.StatusCounts[model.StatusInMaintenance])
}
