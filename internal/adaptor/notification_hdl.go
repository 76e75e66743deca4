package adaptor

import (
	"net/http"

	"waste-marketplace/internal/usecase"
	"waste-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	service usecase.NotificationService
	log     *zap.Logger
}

func NewNotificationHandler(service usecase.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log.With(zap.String("handler", "notification")),
	}
}

// List handles GET /api/notifications?unread=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := h.service.List(r.Context(), principal, unreadOnly, pageFromQuery(r))
	if err != nil {
		handleServiceError(h.log, w, err, "list notifications")
		return
	}

	utils.ResponseSuccess(w, "success", notifications)
}

// CountUnread handles GET /api/notifications/unread-count
func (h *NotificationHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	count, err := h.service.CountUnread(r.Context(), principal)
	if err != nil {
		handleServiceError(h.log, w, err, "count unread notifications")
		return
	}

	utils.ResponseSuccess(w, "success", count)
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		handleServiceError(h.log, w, err, "mark notification read")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	result, err := h.service.MarkAllRead(r.Context(), principal)
	if err != nil {
		handleServiceError(h.log, w, err, "mark all notifications read")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
