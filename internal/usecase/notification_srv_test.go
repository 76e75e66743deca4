package usecase

import (
	"context"
	"fmt"
	"testing"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/dto/request"
	"waste-marketplace/internal/notification"
	"waste-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotifications(t *testing.T, env *testEnv, recipient uuid.UUID, n int) {
	t.Helper()
	sink := notification.NewStoreSink(env.notifications)
	for i := 0; i < n; i++ {
		require.NoError(t, sink.Notify(context.Background(), notification.Event{
			RecipientID: recipient,
			Kind:        entity.NotificationSystemMessage,
			Title:       fmt.Sprintf("message %d", i),
			Message:     "hello",
			OccurredAt:  fixedNow,
		}))
	}
}

func TestNotificationService_ListAndCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	me := env.users.add(entity.RoleUser, "sari")
	other := env.users.add(entity.RoleUser, "budi")
	seedNotifications(t, env, me.ID, 3)
	seedNotifications(t, env, other.ID, 2)

	list, err := env.notification.List(ctx, me, false, request.PaginatedRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Pagination.Total)
	require.Len(t, list.Data, 3)
	assert.Equal(t, "message 2", list.Data[0].Title, "newest first")
	assert.False(t, list.Data[0].IsRead)

	unread, err := env.notification.CountUnread(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread.Unread)
}

func TestNotificationService_MarkRead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	me := env.users.add(entity.RoleUser, "sari")
	other := env.users.add(entity.RoleUser, "budi")
	seedNotifications(t, env, me.ID, 2)

	list, err := env.notification.List(ctx, me, true, request.PaginatedRequest{})
	require.NoError(t, err)
	id := list.Data[0].ID

	err = env.notification.MarkRead(ctx, other, id)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = env.notification.MarkRead(ctx, me, "not-a-uuid")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	require.NoError(t, env.notification.MarkRead(ctx, me, id))
	// marking twice is harmless
	require.NoError(t, env.notification.MarkRead(ctx, me, id))

	unread, err := env.notification.List(ctx, me, true, request.PaginatedRequest{})
	require.NoError(t, err)
	require.Len(t, unread.Data, 1)
	assert.NotEqual(t, id, unread.Data[0].ID)

	all, err := env.notification.List(ctx, me, false, request.PaginatedRequest{})
	require.NoError(t, err)
	for _, n := range all.Data {
		if n.ID == id {
			assert.True(t, n.IsRead)
			require.NotNil(t, n.ReadAt)
			assert.Equal(t, fixedNow, *n.ReadAt)
		}
	}
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	me := env.users.add(entity.RoleUser, "sari")
	other := env.users.add(entity.RoleUser, "budi")
	seedNotifications(t, env, me.ID, 4)
	seedNotifications(t, env, other.ID, 1)

	marked, err := env.notification.MarkAllRead(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(4), marked.Updated)

	again, err := env.notification.MarkAllRead(ctx, me)
	require.NoError(t, err)
	assert.Zero(t, again.Updated)

	mine, err := env.notification.CountUnread(ctx, me)
	require.NoError(t, err)
	assert.Zero(t, mine.Unread)

	theirs, err := env.notification.CountUnread(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), theirs.Unread)
}
