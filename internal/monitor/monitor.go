// Package monitor recomputes the dashboard snapshot on a timer, publishes it
// to websocket clients and Prometheus, and raises SLA alerts.
package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"carretometro-backend/config"
	"carretometro-backend/internal/metrics"
	"carretometro-backend/internal/store"
)

// Dispatcher receives breaches that were not seen before.
type Dispatcher interface {
	Dispatch(b metrics.Breach) bool
}

// Message is the websocket envelope of a snapshot.
type Message struct {
	Type      string           `json:"type"`
	Timestamp int64            `json:"timestamp"`
	Data      metrics.Snapshot `json:"data"`
}

// Service runs the recompute loop.
type Service struct {
	cfg        config.MonitorConfig
	visits     store.VisitRepository
	dispatcher Dispatcher
	hub        *Hub
	collectors *Collectors
	log        logrus.FieldLogger
	now        func() time.Time

	mu       sync.RWMutex
	latest   metrics.Snapshot
	notified map[string]bool
}

// NewService wires the monitor. dispatcher may be nil when alerts are off.
func NewService(cfg config.MonitorConfig, visits store.VisitRepository, dispatcher Dispatcher, hub *Hub, collectors *Collectors, log logrus.FieldLogger) *Service {
	return &Service{
		cfg:        cfg,
		visits:     visits,
		dispatcher: dispatcher,
		hub:        hub,
		collectors: collectors,
		log:        log.WithField("component", "monitor"),
		now:        time.Now,
		notified:   make(map[string]bool),
	}
}

// Run recomputes immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("monitor is disabled, not starting")
		return
	}
	s.log.WithField("interval", s.cfg.Interval.String()).Info("starting monitor")

	s.tick(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("monitor shutting down")
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if _, err := s.RecomputeOnce(ctx); err != nil && ctx.Err() == nil {
		s.log.WithError(err).Error("recompute failed")
	}
}

// RecomputeOnce reads every visit, computes the snapshot and publishes it.
// The previous snapshot stays in place when the store cannot be read.
func (s *Service) RecomputeOnce(ctx context.Context) (metrics.Snapshot, error) {
	started := time.Now()
	visits, err := s.visits.ListVisits(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}

	now := s.now()
	snap := metrics.Compute(visits, now, metrics.Options{Location: s.cfg.Location})

	fresh := s.publish(snap)
	for _, b := range fresh {
		if s.collectors != nil {
			s.collectors.BreachesTotal.WithLabelValues(string(b.Bucket)).Inc()
		}
		s.log.WithFields(logrus.Fields{"visit": b.VisitID, "fleet": b.FleetID, "bucket": b.Bucket}).Warn("SLA exceeded")
		if s.dispatcher != nil {
			s.dispatcher.Dispatch(b)
		}
	}

	if s.collectors != nil {
		s.collectors.observe(snap)
		s.collectors.RecomputeDuration.Observe(time.Since(started).Seconds())
	}
	if s.hub != nil {
		payload, err := json.Marshal(Message{Type: "snapshot", Timestamp: now.UnixMilli(), Data: snap})
		if err != nil {
			return snap, err
		}
		s.hub.Broadcast(payload)
	}
	return snap, nil
}

// publish stores the snapshot and returns the breaches not seen on an
// earlier tick. Breaches that cleared are forgotten.
func (s *Service) publish(snap metrics.Snapshot) []metrics.Breach {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = snap

	current := make(map[string]bool, len(snap.Breaches))
	var fresh []metrics.Breach
	for _, b := range snap.Breaches {
		key := b.Key()
		current[key] = true
		if !s.notified[key] {
			fresh = append(fresh, b)
		}
	}
	s.notified = current
	return fresh
}

// Latest returns the most recent snapshot. Before the first tick it is the
// zero snapshot.
func (s *Service) Latest() metrics.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
