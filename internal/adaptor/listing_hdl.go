package adaptor

import (
	"net/http"

	"waste-marketplace/internal/dto/request"
	"waste-marketplace/internal/usecase"
	"waste-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ListingHandler struct {
	service usecase.ListingService
	log     *zap.Logger
}

func NewListingHandler(service usecase.ListingService, log *zap.Logger) *ListingHandler {
	return &ListingHandler{
		service: service,
		log:     log.With(zap.String("handler", "listing")),
	}
}

// CreateListing handles POST /api/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateListingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	listing, err := h.service.CreateListing(r.Context(), principal, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create listing")
		return
	}

	utils.ResponseCreated(w, "success", listing)
}

// GetListing handles GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	listing, err := h.service.GetListing(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "get listing")
		return
	}

	utils.ResponseSuccess(w, "success", listing)
}

// ListMyListings handles GET /api/listings/mine
func (h *ListingHandler) ListMyListings(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	listings, err := h.service.ListMyListings(r.Context(), principal, pageFromQuery(r))
	if err != nil {
		handleServiceError(h.log, w, err, "list my listings")
		return
	}

	utils.ResponseSuccess(w, "success", listings)
}

// ListOpenListings handles GET /api/listings/open?waste_type=
func (h *ListingHandler) ListOpenListings(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	listings, err := h.service.ListOpenListings(r.Context(), principal, r.URL.Query().Get("waste_type"), pageFromQuery(r))
	if err != nil {
		handleServiceError(h.log, w, err, "list open listings")
		return
	}

	utils.ResponseSuccess(w, "success", listings)
}

// ListProviderListings handles GET /api/listings/assigned
func (h *ListingHandler) ListProviderListings(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	listings, err := h.service.ListProviderListings(r.Context(), principal, pageFromQuery(r))
	if err != nil {
		handleServiceError(h.log, w, err, "list provider listings")
		return
	}

	utils.ResponseSuccess(w, "success", listings)
}

// SubmitOffer handles POST /api/listings/{id}/offers
func (h *ListingHandler) SubmitOffer(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req request.SubmitOfferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	offer, err := h.service.SubmitOffer(r.Context(), principal, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "submit offer")
		return
	}

	utils.ResponseCreated(w, "success", offer)
}

// AcceptOffer handles POST /api/listings/{id}/offers/{offerID}/accept
func (h *ListingHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	listing, err := h.service.AcceptOffer(r.Context(), principal, chi.URLParam(r, "id"), chi.URLParam(r, "offerID"))
	if err != nil {
		handleServiceError(h.log, w, err, "accept offer")
		return
	}

	utils.ResponseSuccess(w, "success", listing)
}

// RejectOffer handles POST /api/listings/{id}/offers/{offerID}/reject
func (h *ListingHandler) RejectOffer(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	listing, err := h.service.RejectOffer(r.Context(), principal, chi.URLParam(r, "id"), chi.URLParam(r, "offerID"))
	if err != nil {
		handleServiceError(h.log, w, err, "reject offer")
		return
	}

	utils.ResponseSuccess(w, "success", listing)
}

// WithdrawOffer handles DELETE /api/listings/{id}/offers/{offerID}
func (h *ListingHandler) WithdrawOffer(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	listing, err := h.service.WithdrawOffer(r.Context(), principal, chi.URLParam(r, "id"), chi.URLParam(r, "offerID"))
	if err != nil {
		handleServiceError(h.log, w, err, "withdraw offer")
		return
	}

	utils.ResponseSuccess(w, "success", listing)
}

// UpdateStatus handles PATCH /api/listings/{id}/status
func (h *ListingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateListingStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	listing, err := h.service.UpdateStatus(r.Context(), principal, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "update listing status")
		return
	}

	utils.ResponseSuccess(w, "success", listing)
}

// CancelListing handles POST /api/listings/{id}/cancel
func (h *ListingHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	listing, err := h.service.CancelListing(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "cancel listing")
		return
	}

	utils.ResponseSuccess(w, "success", listing)
}

// RatePickup handles POST /api/listings/{id}/rating
func (h *ListingHandler) RatePickup(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req request.RateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	listing, err := h.service.RatePickup(r.Context(), principal, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "rate pickup")
		return
	}

	utils.ResponseSuccess(w, "success", listing)
}
