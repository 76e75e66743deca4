package usecase

import (
	"context"

	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// notifier delivers fire-and-forget notifications: failures are logged and
// never reach the caller of the operation that triggered them.
type notifier struct {
	sink  notification.Sink
	users repository.UserRepository
	log   *zap.Logger
}

func (n *notifier) send(ctx context.Context, event notification.Event) {
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	// delivery outlives a client that already went away
	if err := n.sink.Notify(context.WithoutCancel(ctx), event); err != nil {
		n.log.Warn("Failed to deliver notification",
			zap.Error(err),
			zap.String("recipient_id", event.RecipientID.String()),
			zap.String("kind", string(event.Kind)),
		)
	}
}

// displayName is best-effort; an unknown user renders as an empty name.
func (n *notifier) displayName(ctx context.Context, id uuid.UUID) string {
	user, err := n.users.FindByID(ctx, id)
	if err != nil {
		n.log.Debug("Display name lookup failed", zap.Error(err), zap.String("user_id", id.String()))
		return ""
	}
	if user == nil {
		return ""
	}
	return user.Username
}
