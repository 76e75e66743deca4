package response

import (
	"time"

	"waste-marketplace/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OfferResponse struct {
	ID         string             `json:"id"`
	ListingID  string             `json:"listing_id,omitempty"`
	ProviderID string             `json:"provider_id"`
	PricePerKg decimal.Decimal    `json:"price_per_kg"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	Message    *string            `json:"message,omitempty"`
	Status     entity.OfferStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	AcceptedAt *time.Time         `json:"accepted_at,omitempty"`
}

type ListingResponse struct {
	ID                string               `json:"id"`
	OwnerID           string               `json:"owner_id"`
	WasteType         entity.WasteType     `json:"waste_type"`
	QuantityKg        decimal.Decimal      `json:"quantity_kg"`
	Address           entity.Address       `json:"address"`
	Images            []string             `json:"images"`
	PreferredPickupAt *time.Time           `json:"preferred_pickup_at,omitempty"`
	Status            entity.ListingStatus `json:"status"`
	Offers            []OfferResponse      `json:"offers"`
	OfferCount        int                  `json:"offer_count"`
	AcceptedOfferID   *string              `json:"accepted_offer_id,omitempty"`
	ProviderID        *string              `json:"provider_id,omitempty"`
	FinalizedPrice    *decimal.Decimal     `json:"finalized_price,omitempty"`
	CompletedAt       *time.Time           `json:"completed_at,omitempty"`
	CancelledAt       *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy       *entity.CancelledBy  `json:"cancelled_by,omitempty"`
	UserRating        *int                 `json:"user_rating,omitempty"`
	UserReview        *string              `json:"user_review,omitempty"`
	RatedAt           *time.Time           `json:"rated_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func OfferToResponse(listingID uuid.UUID, o entity.Offer) OfferResponse {
	return OfferResponse{
		ID:         o.ID.String(),
		ListingID:  listingID.String(),
		ProviderID: o.ProviderID.String(),
		PricePerKg: o.PricePerKg,
		TotalPrice: o.TotalPrice,
		Message:    o.Message,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		AcceptedAt: o.AcceptedAt,
	}
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// ListingToResponse renders the listing with only the offers the viewer may see.
// A nil offerFilter shows every offer.
func ListingToResponse(l *entity.Listing, offerFilter func(entity.Offer) bool) ListingResponse {
	offers := make([]OfferResponse, 0, len(l.Offers))
	for _, o := range l.Offers {
		if offerFilter != nil && !offerFilter(o) {
			continue
		}
		offers = append(offers, OfferToResponse(l.ID, o))
	}

	images := l.Images
	if images == nil {
		images = []string{}
	}

	return ListingResponse{
		ID:                l.ID.String(),
		OwnerID:           l.OwnerID.String(),
		WasteType:         l.WasteType,
		QuantityKg:        l.QuantityKg,
		Address:           l.Address,
		Images:            images,
		PreferredPickupAt: l.PreferredPickupAt,
		Status:            l.Status,
		Offers:            offers,
		OfferCount:        len(l.Offers),
		AcceptedOfferID:   optionalID(l.AcceptedOfferID),
		ProviderID:        optionalID(l.ProviderID),
		FinalizedPrice:    l.FinalizedPrice,
		CompletedAt:       l.CompletedAt,
		CancelledAt:       l.CancelledAt,
		CancelledBy:       l.CancelledBy,
		UserRating:        l.UserRating,
		UserReview:        l.UserReview,
		RatedAt:           l.RatedAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}
