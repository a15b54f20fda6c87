package worker

import (
	"context"

	"go.uber.org/zap"

	"go-event-registration/internal/queue"
	"go-event-registration/pkg/logger"
)

// Notifier delivers a single notification to its destination (mail, push,
// webhook). Returning an error leaves the message queued for redelivery.
type Notifier interface {
	Notify(ctx context.Context, n *queue.Notification) error
}

// LogNotifier writes notifications to the log. It stands in for a real
// delivery channel in development and tests.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithComponent("notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, notification *queue.Notification) error {
	n.log.Info("notification",
		zap.String("kind", string(notification.Kind)),
		zap.String("event_id", notification.EventID.String()),
		zap.String("registration_id", notification.RegistrationID.String()),
		zap.String("email", notification.Email),
	)
	return nil
}

// NotificationWorker drains the notification queue and hands each message to
// the notifier. Failed deliveries are nacked for redelivery; the queue's
// retry policy decides when to give up.
type NotificationWorker struct {
	queue    queue.NotificationQueue
	notifier Notifier
	log      *zap.Logger
}

func NewNotificationWorker(q queue.NotificationQueue, notifier Notifier) *NotificationWorker {
	return &NotificationWorker{
		queue:    q,
		notifier: notifier,
		log:      logger.WithComponent("notification_worker"),
	}
}

// Start consumes deliveries until ctx is cancelled or the queue closes.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info("notification worker started")

	deliveries, err := w.queue.Subscribe(ctx)
	if err != nil {
		w.log.Error("subscribe failed", zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info("notification worker stopped")
			return
		case delivery, ok := <-deliveries:
			if !ok {
				w.log.Info("notification queue closed")
				return
			}
			w.handle(ctx, delivery)
		}
	}
}

func (w *NotificationWorker) handle(ctx context.Context, delivery queue.Delivery) {
	if err := w.notifier.Notify(ctx, delivery.Data); err != nil {
		w.log.Warn("notification delivery failed",
			zap.String("kind", string(delivery.Data.Kind)),
			zap.String("registration_id", delivery.Data.RegistrationID.String()),
			zap.Error(err))
		delivery.Nack(true)
		return
	}

	delivery.Ack()
}
