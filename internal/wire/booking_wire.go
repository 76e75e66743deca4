package wire

import (
	"waste-marketplace/internal/adaptor"
	"waste-marketplace/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, h *adaptor.BookingHandler, d deps) {
	r.Route("/bookings", func(r chi.Router) {
		r.With(middleware.Idempotency(d.idempotency, d.log)).Post("/", h.CreateBooking)
		r.Get("/mine", h.ListMyBookings)
		r.Get("/ref/{reference}", h.GetBookingByReference)
		r.Get("/{id}", h.GetBookingByID)
		r.Post("/{id}/cancel", h.CancelBooking)
		r.Post("/{id}/rating", h.RateBooking)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(d.log, providerRoles...))

			r.Get("/provider", h.ListProviderBookings)
			r.Patch("/{id}/status", h.UpdateBookingStatus)
		})
	})
}
