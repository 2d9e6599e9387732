package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/repository"
	"github.com/ikkim/homestay-backend/internal/metrics"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

// Dispatcher drains the notification outbox. It runs on a ticker and can be
// poked after a commit to deliver sooner.
type Dispatcher struct {
	repo     repository.NotificationRepository
	notifier Notifier
	batch    int
	interval time.Duration
	now      func() time.Time

	poke chan struct{}
	done chan struct{}
	once sync.Once
}

func NewDispatcher(repo repository.NotificationRepository, n Notifier, batch int, interval time.Duration) *Dispatcher {
	if batch <= 0 {
		batch = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Dispatcher{
		repo:     repo,
		notifier: n,
		batch:    batch,
		interval: interval,
		now:      time.Now,
		poke:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Poke requests a dispatch round without blocking
func (d *Dispatcher) Poke() {
	select {
	case d.poke <- struct{}{}:
	default:
	}
}

// Start runs the loop until ctx is cancelled
func (d *Dispatcher) Start(ctx context.Context) {
	logger.Info("Notification dispatcher started", map[string]interface{}{
		"interval": d.interval.String(),
		"batch":    d.batch,
	})

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Notification dispatcher stopped")
				return
			case <-ticker.C:
			case <-d.poke:
			}
			d.DispatchOnce(ctx)
		}
	}()
}

// Wait blocks until the loop started by Start has exited
func (d *Dispatcher) Wait() {
	<-d.done
}

// DispatchOnce claims one batch and attempts each message once. Returns the number sent.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	events, err := d.repo.ClaimPending(d.batch)
	if err != nil {
		logger.Error("Failed to claim notification events", err)
		return 0
	}

	sent := 0
	for _, ev := range events {
		if err := d.notifier.Notify(ctx, toMessage(ev)); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			logger.Warn("Notification delivery failed", map[string]interface{}{
				"event_id":       ev.EventID,
				"application_id": ev.ApplicationID,
				"error":          err.Error(),
			})
			if markErr := d.repo.MarkFailed(ev.ID, err.Error()); markErr != nil {
				logger.Error("Failed to mark notification failed", markErr, map[string]interface{}{
					"id": ev.ID,
				})
			}
			continue
		}

		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		if err := d.repo.MarkSent(ev.ID, d.now()); err != nil {
			logger.Error("Failed to mark notification sent", err, map[string]interface{}{
				"id": ev.ID,
			})
		}
		sent++
	}
	return sent
}

func toMessage(ev model.NotificationEvent) Message {
	return Message{
		Key:           ev.MessageKey,
		EventID:       ev.EventID,
		ApplicationID: ev.ApplicationID,
		Recipient:     ev.Recipient,
		Text:          ev.Message,
		Extra:         ev.Extra,
		OccurredAt:    ev.CreatedAt,
	}
}
