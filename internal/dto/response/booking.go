package response

import (
	"time"

	"waste-marketplace/internal/data/entity"

	"github.com/shopspring/decimal"
)

type ServiceSummary struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	ProviderName string          `json:"provider_name,omitempty"`
}

type BookingResponse struct {
	ID                  string               `json:"id"`
	BookingReference    string               `json:"booking_reference"`
	RequesterID         string               `json:"requester_id"`
	ServiceID           string               `json:"service_id"`
	ProviderID          string               `json:"provider_id"`
	Service             *ServiceSummary      `json:"service,omitempty"`
	BookingDate         time.Time            `json:"booking_date"`
	TimeSlot            entity.TimeSlot      `json:"time_slot"`
	Address             entity.Address       `json:"address"`
	ContactPerson       entity.ContactPerson `json:"contact_person"`
	SpecialInstructions *string              `json:"special_instructions,omitempty"`
	Requirements        map[string]any       `json:"requirements,omitempty"`
	BasePrice           decimal.Decimal      `json:"base_price"`
	AdditionalCharges   decimal.Decimal      `json:"additional_charges"`
	Discount            decimal.Decimal      `json:"discount"`
	TotalAmount         decimal.Decimal      `json:"total_amount"`
	PaymentStatus       entity.PaymentStatus `json:"payment_status"`
	Status              entity.BookingStatus `json:"status"`
	ProviderNotes       *string              `json:"provider_notes,omitempty"`
	ConfirmedAt         *time.Time           `json:"confirmed_at,omitempty"`
	CompletedAt         *time.Time           `json:"completed_at,omitempty"`
	CancelledBy         *entity.CancelledBy  `json:"cancelled_by,omitempty"`
	CancellationReason  *string              `json:"cancellation_reason,omitempty"`
	CancellationTime    *time.Time           `json:"cancellation_time,omitempty"`
	Rating              *int                 `json:"rating,omitempty"`
	Review              *string              `json:"review,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

func ServiceToSummary(s *entity.Service, providerName string) *ServiceSummary {
	if s == nil {
		return nil
	}
	return &ServiceSummary{
		ID:           s.ID.String(),
		Name:         s.Name,
		Category:     s.Category,
		Price:        s.Price,
		ProviderName: providerName,
	}
}

func BookingToResponse(b *entity.Booking, service *ServiceSummary) BookingResponse {
	return BookingResponse{
		ID:                  b.ID.String(),
		BookingReference:    b.Reference,
		RequesterID:         b.RequesterID.String(),
		ServiceID:           b.ServiceID.String(),
		ProviderID:          b.ProviderID.String(),
		Service:             service,
		BookingDate:         b.BookingDate,
		TimeSlot:            b.TimeSlot,
		Address:             b.Address,
		ContactPerson:       b.ContactPerson,
		SpecialInstructions: b.SpecialInstructions,
		Requirements:        b.Requirements,
		BasePrice:           b.BasePrice,
		AdditionalCharges:   b.AdditionalCharges,
		Discount:            b.Discount,
		TotalAmount:         b.TotalAmount,
		PaymentStatus:       b.PaymentStatus,
		Status:              b.Status,
		ProviderNotes:       b.ProviderNotes,
		ConfirmedAt:         b.ConfirmedAt,
		CompletedAt:         b.CompletedAt,
		CancelledBy:         b.CancelledBy,
		CancellationReason:  b.CancellationReason,
		CancellationTime:    b.CancellationTime,
		Rating:              b.Rating,
		Review:              b.Review,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}
