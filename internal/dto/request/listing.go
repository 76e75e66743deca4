package request

import (
	"time"

	"waste-marketplace/internal/data/entity"

	"github.com/shopspring/decimal"
)

type CreateListingRequest struct {
	WasteType         string          `json:"waste_type" validate:"required,oneof=food_waste garden_waste paper cardboard manure agricultural mixed_organic other"`
	QuantityKg        decimal.Decimal `json:"quantity_kg"`
	Address           *entity.Address `json:"address" validate:"required"`
	Images            []string        `json:"images" validate:"omitempty,max=10,dive,url"`
	PreferredPickupAt *time.Time      `json:"preferred_pickup_at,omitempty"`
}

type SubmitOfferRequest struct {
	PricePerKg decimal.Decimal `json:"price_per_kg"`
	Message    *string         `json:"message,omitempty" validate:"omitempty,max=500"`
}

type UpdateListingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open offered accepted scheduled completed cancelled rejected"`
}

type RateRequest struct {
	Rating int     `json:"rating" validate:"required,gte=1,lte=5"`
	Review *string `json:"review,omitempty" validate:"omitempty,max=1000"`
}
