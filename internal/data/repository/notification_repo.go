package repository

import (
	"context"
	"fmt"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationRepository is the per-recipient log clients poll.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	FindByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	CountByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) (int64, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)
}

type notificationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewNotificationRepository(db database.PgxIface, log *zap.Logger) NotificationRepository {
	return &notificationRepository{
		db:  db,
		log: log.With(zap.String("repository", "notification")),
	}
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, kind, title, message, payload, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		n.ID,
		n.RecipientID,
		n.Kind,
		n.Title,
		n.Message,
		n.Payload,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create notification",
			zap.Error(err),
			zap.String("recipient_id", n.RecipientID.String()),
			zap.String("kind", string(n.Kind)),
		)
		return fmt.Errorf("create notification for %s: %w", n.RecipientID, err)
	}

	return nil
}

func (r *notificationRepository) FindByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	query := `
		SELECT id, recipient_id, kind, title, message, payload, is_read, read_at, created_at
		FROM notifications
		WHERE recipient_id = $1 AND (NOT $2 OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, recipientID, unreadOnly, limit, offset)
	if err != nil {
		r.log.Error("Failed to find notifications",
			zap.Error(err),
			zap.String("recipient_id", recipientID.String()),
		)
		return nil, fmt.Errorf("find notifications for %s: %w", recipientID, err)
	}
	defer rows.Close()

	notifications := []*entity.Notification{}
	for rows.Next() {
		var n entity.Notification
		err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.Kind,
			&n.Title,
			&n.Message,
			&n.Payload,
			&n.IsRead,
			&n.ReadAt,
			&n.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan notification row", zap.Error(err))
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

func (r *notificationRepository) CountByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND (NOT $2 OR is_read = false)`

	var count int64
	if err := r.db.QueryRow(ctx, query, recipientID, unreadOnly).Scan(&count); err != nil {
		r.log.Error("Failed to count notifications",
			zap.Error(err),
			zap.String("recipient_id", recipientID.String()),
		)
		return 0, fmt.Errorf("count notifications for %s: %w", recipientID, err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE notifications SET is_read = true, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND recipient_id = $2
	`

	result, err := r.db.Exec(ctx, query, id, recipientID, at)
	if err != nil {
		r.log.Error("Failed to mark notification read",
			zap.Error(err),
			zap.String("notification_id", id.String()),
		)
		return false, fmt.Errorf("mark notification %s read: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	query := `UPDATE notifications SET is_read = true, read_at = $2 WHERE recipient_id = $1 AND is_read = false`

	result, err := r.db.Exec(ctx, query, recipientID, at)
	if err != nil {
		r.log.Error("Failed to mark notifications read",
			zap.Error(err),
			zap.String("recipient_id", recipientID.String()),
		)
		return 0, fmt.Errorf("mark notifications of %s read: %w", recipientID, err)
	}

	return result.RowsAffected(), nil
}
