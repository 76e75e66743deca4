package wire

import (
	"waste-marketplace/internal/adaptor"
	"waste-marketplace/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireListing(r chi.Router, h *adaptor.ListingHandler, d deps) {
	r.Route("/listings", func(r chi.Router) {
		r.With(middleware.Idempotency(d.idempotency, d.log)).Post("/", h.CreateListing)
		r.Get("/mine", h.ListMyListings)
		r.Get("/{id}", h.GetListing)
		r.Post("/{id}/offers/{offerID}/accept", h.AcceptOffer)
		r.Post("/{id}/offers/{offerID}/reject", h.RejectOffer)
		r.Post("/{id}/cancel", h.CancelListing)
		r.Post("/{id}/rating", h.RatePickup)

		// provider side
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(d.log, providerRoles...))

			r.Get("/open", h.ListOpenListings)
			r.Get("/assigned", h.ListProviderListings)
			r.With(middleware.Idempotency(d.idempotency, d.log)).Post("/{id}/offers", h.SubmitOffer)
			r.Delete("/{id}/offers/{offerID}", h.WithdrawOffer)
			r.Patch("/{id}/status", h.UpdateStatus)
		})
	})
}
