package adaptor

import (
	"waste-marketplace/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Listing      *ListingHandler
	Booking      *BookingHandler
	Notification *NotificationHandler
	User         *UserHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Listing:      NewListingHandler(service.Listing, log),
		Booking:      NewBookingHandler(service.Booking, log),
		Notification: NewNotificationHandler(service.Notification, log),
		User:         NewUserHandler(service.User, log),
	}
}
