package usecase

import (
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/notification"
	"waste-marketplace/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Listing      ListingService
	Booking      BookingService
	Notification NotificationService
	User         UserService
}

func NewService(repo *repository.Repository, sink notification.Sink, config *utils.Config, log *zap.Logger) *Service {
	if sink == nil {
		sink = notification.Nop{}
	}
	return &Service{
		Listing:      NewListingService(repo, sink, config.Listing, log),
		Booking:      NewBookingService(repo, sink, config.Booking, log),
		Notification: NewNotificationService(repo.Notification, log),
		User:         NewUserService(repo.User, log),
	}
}
