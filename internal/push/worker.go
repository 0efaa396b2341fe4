package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/pointjar/internal/metrics"
	"github.com/dukerupert/pointjar/internal/model"
)

// SubscriptionStore is the subset of the push store the worker needs.
type SubscriptionStore interface {
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type job struct {
	userID  int64
	payload Payload
}

// Worker sends queued payloads to every subscription of their user in the
// background and removes subscriptions the push service reports as gone.
type Worker struct {
	service *Service
	subs    SubscriptionStore
	logger  *slog.Logger
	queue   chan job
	timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(svc *Service, subs SubscriptionStore, logger *slog.Logger) *Worker {
	return &Worker{
		service: svc,
		subs:    subs,
		logger:  logger.With("component", "push"),
		queue:   make(chan job, 256),
		timeout: 10 * time.Second,
	}
}

// Enqueue schedules a push to userID. It never blocks; when the queue is
// full the payload is dropped and false is returned.
func (w *Worker) Enqueue(userID int64, payload Payload) bool {
	select {
	case w.queue <- job{userID: userID, payload: payload}:
		return true
	default:
		w.logger.Warn("push queue full, dropping message", "user_id", userID)
		return false
	}
}

// Start begins draining the queue.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-w.queue:
				w.deliver(ctx, j)
			}
		}
	}()
}

// Stop gracefully stops the worker. Messages still queued are dropped.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (w *Worker) deliver(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	subs, err := w.subs.ListByUser(ctx, j.userID)
	if err != nil {
		w.logger.Error("list push subscriptions", "user_id", j.userID, "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		err := w.service.Send(ctx, sub, j.payload)
		switch {
		case err == nil:
			metrics.PushDeliveries.WithLabelValues("sent").Inc()
		case errors.Is(err, ErrExpired):
			metrics.PushDeliveries.WithLabelValues("expired").Inc()
			if err := w.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				w.logger.Error("delete expired subscription", "id", sub.ID, "error", err)
			} else {
				w.logger.Info("removed expired subscription", "id", sub.ID, "user_id", j.userID)
			}
		default:
			metrics.PushDeliveries.WithLabelValues("failed").Inc()
			w.logger.Warn("push delivery failed", "id", sub.ID, "error", err)
		}
	}
}
