package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carretometro-backend/internal/logger"
	"carretometro-backend/internal/metrics"
	"carretometro-backend/internal/model"
	"carretometro-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestStore(t *testing.T) (store.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	return store.NewGormStore(gormDB), mock
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

var breach = metrics.Breach{
	VisitID:  "V001",
	FleetID:  "F123",
	Workshop: model.WorkshopCMC,
	Bucket:   metrics.BucketCorrective,
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Frota F123 (V001) excedeu o SLA de Corretiva", Message(breach))
}

func TestWorkerPool_Dispatch(t *testing.T) {
	s, _ := newTestStore(t)
	wp := NewWorkerPool(1, s, &webpush.Options{}, logger.Discard())

	assert.True(t, wp.Dispatch(breach))

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, breach, job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchNeverBlocks(t *testing.T) {
	s, _ := newTestStore(t)
	wp := NewWorkerPool(1, s, &webpush.Options{}, logger.Discard())

	for i := 0; i < cap(wp.Jobs()); i++ {
		require.True(t, wp.Dispatch(breach))
	}
	assert.False(t, wp.Dispatch(breach))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	s, mock := newTestStore(t)
	wp := NewWorkerPool(1, s, &webpush.Options{}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	subscriptionsQuery := `SELECT \* FROM "push_subscriptions" WHERE workshop = \$1 OR workshop = \$2 OR workshop IS NULL`
	columns := []string{"endpoint", "p256dh", "auth", "workshop", "created_at"}

	t.Run("sends notification to workshop subscribers", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "Frota F123 (V001) excedeu o SLA de Corretiva", string(payload))
				wg.Done()
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(subscriptionsQuery).
			WithArgs(string(model.WorkshopCMC), "").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("https://example.com/cmc", "k1", "a1", "CMC", time.Now()).
				AddRow("https://example.com/all", "k2", "a2", "", time.Now()))

		wp.Dispatch(breach)
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(subscriptionsQuery).
			WithArgs(string(model.WorkshopCMC), "").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("https://example.com/expired", "k3", "a3", "CMC", time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE endpoint = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(breach)

		// A short sleep to allow the worker to process the job
		time.Sleep(100 * time.Millisecond)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("send errors do not stop the worker", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		calls := 0
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				calls++
				if calls == 1 {
					return nil, fmt.Errorf("connection reset")
				}
				return response(http.StatusCreated), nil
			},
		}

		for i := 0; i < 2; i++ {
			mock.ExpectQuery(subscriptionsQuery).
				WithArgs(string(model.WorkshopCMC), "").
				WillReturnRows(sqlmock.NewRows(columns).AddRow("https://example.com/flaky", "k4", "a4", "CMC", time.Now()))
		}

		wp.Dispatch(breach)
		wp.Dispatch(breach)
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
