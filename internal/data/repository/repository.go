package repository

import (
	"waste-marketplace/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	DB           database.PgxIface
	User         UserRepository
	Session      SessionRepository
	Listing      ListingRepository
	Booking      BookingRepository
	Service      ServiceRepository
	Notification NotificationRepository
}

// NewRepository builds every store on Postgres. The listing store can be
// swapped for the document backend with UseListingStore.
func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		DB:           db,
		User:         NewUserRepository(db, log),
		Session:      NewSessionRepository(db, log),
		Listing:      NewListingRepository(db, log),
		Booking:      NewBookingRepository(db, log),
		Service:      NewServiceRepository(db, log),
		Notification: NewNotificationRepository(db, log),
	}
}

func (r *Repository) UseListingStore(store ListingRepository) {
	r.Listing = store
}
