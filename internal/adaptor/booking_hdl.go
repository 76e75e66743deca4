package adaptor

import (
	"net/http"

	"waste-marketplace/internal/dto/request"
	"waste-marketplace/internal/usecase"
	"waste-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), principal, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// GetBookingByID handles GET /api/bookings/{id}
func (h *BookingHandler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBookingByID(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// ListMyBookings handles GET /api/bookings/mine
func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListMyBookings(r.Context(), principal, pageFromQuery(r))
	if err != nil {
		handleServiceError(h.log, w, err, "list my bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBookingByReference handles GET /api/bookings/ref/{reference}
func (h *BookingHandler) GetBookingByReference(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBookingByReference(r.Context(), principal, chi.URLParam(r, "reference"))
	if err != nil {
		handleServiceError(h.log, w, err, "get booking by reference")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// ListProviderBookings handles GET /api/bookings/provider?status=
func (h *BookingHandler) ListProviderBookings(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListProviderBookings(r.Context(), principal, r.URL.Query().Get("status"), pageFromQuery(r))
	if err != nil {
		handleServiceError(h.log, w, err, "list provider bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// UpdateBookingStatus handles PATCH /api/bookings/{id}/status
func (h *BookingHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateBookingStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	booking, err := h.service.UpdateBookingStatus(r.Context(), principal, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "update booking status")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel, the body is optional
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req request.CancelBookingRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	booking, err := h.service.CancelBooking(r.Context(), principal, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// RateBooking handles POST /api/bookings/{id}/rating
func (h *BookingHandler) RateBooking(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req request.RateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	booking, err := h.service.RateBooking(r.Context(), principal, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "rate booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}
