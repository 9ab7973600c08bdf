package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"carretometro-backend/internal/metrics"
	"carretometro-backend/internal/model"
	"carretometro-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers SLA breach alerts to push subscribers.
type WorkerPool struct {
	size    int
	jobs    chan metrics.Breach
	subs    store.SubscriptionRepository
	webpush *webpush.Options
	sender  NotificationSender
	log     logrus.FieldLogger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs store.SubscriptionRepository, webpushOptions *webpush.Options, log logrus.FieldLogger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan metrics.Breach, size*16),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.WithField("component", "notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.WithField("worker", id)
	log.Debug("worker started")
	for {
		select {
		case breach := <-wp.jobs:
			wp.notify(ctx, breach)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues an alert. It never blocks; a full queue drops the alert
// and reports false.
func (wp *WorkerPool) Dispatch(b metrics.Breach) bool {
	select {
	case wp.jobs <- b:
		return true
	default:
		wp.log.WithField("visit", b.VisitID).Warn("notification queue full, alert dropped")
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan metrics.Breach {
	return wp.jobs
}

// Message is the alert text for a breach.
func Message(b metrics.Breach) string {
	return fmt.Sprintf("Frota %s (%s) excedeu o SLA de %s", b.FleetID, b.VisitID, b.Bucket)
}

func (wp *WorkerPool) notify(ctx context.Context, b metrics.Breach) {
	subscriptions, err := wp.subs.SubscriptionsFor(ctx, b.Workshop)
	if err != nil {
		wp.log.WithError(err).WithField("visit", b.VisitID).Error("failed to load subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	wp.log.WithFields(logrus.Fields{"visit": b.VisitID, "bucket": b.Bucket, "subscribers": len(subscriptions)}).
		Info("sending SLA alerts")
	payload := []byte(Message(b))
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.WithError(err).WithField("endpoint", sub.Endpoint).Warn("failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
