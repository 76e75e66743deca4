package notification

import (
	"context"
	"errors"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/pkg/messaging"

	"github.com/google/uuid"
)

// Event is one entry for a recipient's notification log.
type Event struct {
	RecipientID uuid.UUID               `json:"recipient_id"`
	Kind        entity.NotificationKind `json:"kind"`
	Title       string                  `json:"title"`
	Message     string                  `json:"message"`
	Payload     map[string]any          `json:"payload"`
	OccurredAt  time.Time               `json:"occurred_at"`
}

// Sink receives notifications. Callers treat delivery as fire-and-forget.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// StoreSink appends to the notifications table that clients poll.
type StoreSink struct {
	repo repository.NotificationRepository
}

func NewStoreSink(repo repository.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Notify(ctx context.Context, event Event) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return s.repo.Create(ctx, &entity.Notification{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: event.OccurredAt,
		},
		RecipientID: event.RecipientID,
		Kind:        event.Kind,
		Title:       event.Title,
		Message:     event.Message,
		Payload:     payload,
	})
}

const EventTypeNotificationCreated = "notification.created"

type publisher interface {
	Publish(ctx context.Context, msg messaging.Message) error
}

// KafkaSink publishes each notification for downstream email and push delivery.
type KafkaSink struct {
	producer publisher
	source   string
}

func NewKafkaSink(producer publisher, source string) *KafkaSink {
	return &KafkaSink{producer: producer, source: source}
}

func (s *KafkaSink) Notify(ctx context.Context, event Event) error {
	msg, err := messaging.NewEvent(event.RecipientID.String(), EventTypeNotificationCreated, s.source, event)
	if err != nil {
		return err
	}
	return s.producer.Publish(ctx, msg)
}

// FanOut delivers to every sink and joins their errors.
type FanOut []Sink

func (f FanOut) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
