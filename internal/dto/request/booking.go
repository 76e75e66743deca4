package request

import (
	"time"

	"waste-marketplace/internal/data/entity"
)

type TimeSlotRequest struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

type ContactPersonRequest struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Phone string  `json:"phone" validate:"required,max=20"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

type CreateBookingRequest struct {
	ServiceID           string                `json:"service_id" validate:"required,uuid"`
	BookingDate         *time.Time            `json:"booking_date" validate:"required"`
	TimeSlot            *TimeSlotRequest      `json:"time_slot" validate:"required"`
	Address             *entity.Address       `json:"address" validate:"required"`
	ContactPerson       *ContactPersonRequest `json:"contact_person" validate:"required"`
	SpecialInstructions *string               `json:"special_instructions,omitempty" validate:"omitempty,max=1000"`
	Requirements        map[string]any        `json:"requirements,omitempty"`
}

type UpdateBookingStatusRequest struct {
	Status        string  `json:"status" validate:"required,oneof=pending confirmed scheduled in_progress completed cancelled rejected expired"`
	ProviderNotes *string `json:"provider_notes,omitempty" validate:"omitempty,max=1000"`
}

type CancelBookingRequest struct {
	Reason *string `json:"cancellation_reason,omitempty" validate:"omitempty,max=500"`
}
