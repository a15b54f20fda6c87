package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NotificationKind tags an outbound fire-and-forget notification.
type NotificationKind string

const (
	NotificationAdmitted   NotificationKind = "registration-admitted"
	NotificationWaitlisted NotificationKind = "registration-waitlisted"
	NotificationPromoted   NotificationKind = "waitlist-promoted"
	NotificationCheckedIn  NotificationKind = "checked-in"
)

type Notification struct {
	ID             string           `json:"id"`
	Kind           NotificationKind `json:"kind"`
	EventID        uuid.UUID        `json:"event_id"`
	RegistrationID uuid.UUID        `json:"registration_id"`
	RegistrantID   uuid.UUID        `json:"registrant_id"`
	Email          string           `json:"email,omitempty"`
	Position       int              `json:"position,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

type Delivery struct {
	Data *Notification
	Ack  func()
	Nack func(requeue bool)
}

// NotificationQueue decouples registration transitions from delivery.
// Publish must not block the request path beyond enqueueing.
type NotificationQueue interface {
	Publish(ctx context.Context, n *Notification) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

// ChannelNotificationQueue is an in-process NotificationQueue backed by a
// buffered channel, for tests and single-node development.
type ChannelNotificationQueue struct {
	ch chan *Notification
}

func NewChannelNotificationQueue(bufferSize int) *ChannelNotificationQueue {
	return &ChannelNotificationQueue{
		ch: make(chan *Notification, bufferSize),
	}
}

func (q *ChannelNotificationQueue) Publish(ctx context.Context, n *Notification) error {
	select {
	case q.ch <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChannelNotificationQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: n,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- n
						}
					},
				}
			}
		}
	}()

	return out, nil
}
