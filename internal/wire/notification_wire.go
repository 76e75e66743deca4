package wire

import (
	"waste-marketplace/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireNotification(r chi.Router, h *adaptor.NotificationHandler) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/unread-count", h.CountUnread)
		r.Post("/read-all", h.MarkAllRead)
		r.Post("/{id}/read", h.MarkRead)
	})
}
