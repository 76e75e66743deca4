package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/messaging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationRepo struct {
	created []*entity.Notification
	err     error
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *entity.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, n)
	return nil
}

func (r *fakeNotificationRepo) FindByRecipient(context.Context, uuid.UUID, bool, int, int) ([]*entity.Notification, error) {
	return nil, nil
}

func (r *fakeNotificationRepo) CountByRecipient(context.Context, uuid.UUID, bool) (int64, error) {
	return 0, nil
}

func (r *fakeNotificationRepo) MarkRead(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

func (r *fakeNotificationRepo) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

type fakePublisher struct {
	published []messaging.Message
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, msg messaging.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func sampleEvent() Event {
	return Event{
		RecipientID: uuid.New(),
		Kind:        entity.NotificationSellWasteOffer,
		Title:       "New offer",
		Message:     "You received a new offer",
		Payload:     map[string]any{"listing_id": "abc"},
		OccurredAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestStoreSink_AppendsUnreadNotification(t *testing.T) {
	repo := &fakeNotificationRepo{}
	event := sampleEvent()

	require.NoError(t, NewStoreSink(repo).Notify(context.Background(), event))
	require.Len(t, repo.created, 1)

	n := repo.created[0]
	assert.Equal(t, event.RecipientID, n.RecipientID)
	assert.Equal(t, entity.NotificationSellWasteOffer, n.Kind)
	assert.False(t, n.IsRead)
	assert.Equal(t, "abc", n.Payload["listing_id"])
	assert.NotEqual(t, uuid.Nil, n.ID)
}

func TestKafkaSink_KeysByRecipient(t *testing.T) {
	pub := &fakePublisher{}
	event := sampleEvent()

	require.NoError(t, NewKafkaSink(pub, "waste-marketplace").Notify(context.Background(), event))
	require.Len(t, pub.published, 1)

	msg := pub.published[0]
	assert.Equal(t, event.RecipientID.String(), msg.Key)
	assert.Equal(t, EventTypeNotificationCreated, msg.Headers[messaging.HeaderEventType])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Kind, decoded.Kind)
}

func TestFanOut_DeliversToAllAndJoinsErrors(t *testing.T) {
	repo := &fakeNotificationRepo{}
	pub := &fakePublisher{err: errors.New("broker down")}

	err := FanOut{NewKafkaSink(pub, "svc"), NewStoreSink(repo), Nop{}}.Notify(context.Background(), sampleEvent())

	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, repo.created, 1, "a failing sink must not stop the others")
}
