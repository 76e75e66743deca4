package wire

import (
	"waste-marketplace/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireUser(r chi.Router, h *adaptor.UserHandler) {
	r.Get("/me", h.GetProfile)
}
