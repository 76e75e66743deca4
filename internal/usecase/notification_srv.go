package usecase

import (
	"context"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/dto/request"
	"waste-marketplace/internal/dto/response"
	"waste-marketplace/pkg/apperror"

	"go.uber.org/zap"
)

type NotificationService interface {
	List(ctx context.Context, p entity.Principal, unreadOnly bool, page request.PaginatedRequest) (*response.PaginatedResponse[response.NotificationResponse], error)
	CountUnread(ctx context.Context, p entity.Principal) (*response.UnreadCountResponse, error)
	MarkRead(ctx context.Context, p entity.Principal, notificationID string) error
	MarkAllRead(ctx context.Context, p entity.Principal) (*response.MarkedReadResponse, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, log *zap.Logger) NotificationService {
	return &notificationService{
		repo: repo,
		log:  log.With(zap.String("service", "notification")),
		now:  time.Now,
	}
}

func (s *notificationService) List(ctx context.Context, p entity.Principal, unreadOnly bool, page request.PaginatedRequest) (*response.PaginatedResponse[response.NotificationResponse], error) {
	return paginate(ctx, page,
		func(ctx context.Context, limit, offset int) ([]*entity.Notification, error) {
			return s.repo.FindByRecipient(ctx, p.ID, unreadOnly, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.repo.CountByRecipient(ctx, p.ID, unreadOnly)
		},
		response.NotificationToResponse,
	)
}

func (s *notificationService) CountUnread(ctx context.Context, p entity.Principal) (*response.UnreadCountResponse, error) {
	count, err := s.repo.CountByRecipient(ctx, p.ID, true)
	if err != nil {
		return nil, apperror.Internal("failed to count notifications", err)
	}
	return &response.UnreadCountResponse{Unread: count}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, p entity.Principal, notificationID string) error {
	id, err := parseID(notificationID, "notification_id")
	if err != nil {
		return err
	}

	ok, err := s.repo.MarkRead(ctx, id, p.ID, s.now())
	if err != nil {
		return apperror.Internal("failed to mark notification read", err)
	}
	// someone else's notification looks the same as a missing one
	if !ok {
		return apperror.NotFoundWithID("notification", id.String())
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, p entity.Principal) (*response.MarkedReadResponse, error) {
	updated, err := s.repo.MarkAllRead(ctx, p.ID, s.now())
	if err != nil {
		return nil, apperror.Internal("failed to mark notifications read", err)
	}

	s.log.Debug("Notifications marked read",
		zap.String("recipient_id", p.ID.String()),
		zap.Int64("updated", updated),
	)
	return &response.MarkedReadResponse{Updated: updated}, nil
}
