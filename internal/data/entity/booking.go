package entity

import (
	"time"

	"waste-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusScheduled  BookingStatus = "scheduled"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRejected   BookingStatus = "rejected"
	BookingStatusExpired    BookingStatus = "expired"
)

func (s BookingStatus) String() string { return string(s) }

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusScheduled, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected, BookingStatusExpired:
		return true
	}
	return false
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusRejected},
	BookingStatusConfirmed:  {BookingStatusScheduled, BookingStatusCancelled},
	BookingStatusScheduled:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is recorded for display only, nothing settles payments here.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// DefaultCancelWindow is the minimum lead time before the booking date for a cancellation.
const DefaultCancelWindow = 2 * time.Hour

type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ContactPerson struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email,omitempty"`
}

type Booking struct {
	BaseNoDelete
	Reference           string          `db:"booking_reference"`
	RequesterID         uuid.UUID       `db:"requester_id"`
	ServiceID           uuid.UUID       `db:"service_id"`
	ProviderID          uuid.UUID       `db:"provider_id"`
	BookingDate         time.Time       `db:"booking_date"`
	TimeSlot            TimeSlot        `db:"time_slot"`
	Address             Address         `db:"address"`
	ContactPerson       ContactPerson   `db:"contact_person"`
	SpecialInstructions *string         `db:"special_instructions"`
	Requirements        map[string]any  `db:"requirements"`
	BasePrice           decimal.Decimal `db:"base_price"`
	AdditionalCharges   decimal.Decimal `db:"additional_charges"`
	Discount            decimal.Decimal `db:"discount"`
	TotalAmount         decimal.Decimal `db:"total_amount"`
	PaymentStatus       PaymentStatus   `db:"payment_status"`
	Status              BookingStatus   `db:"status"`
	ProviderNotes       *string         `db:"provider_notes"`
	ConfirmedAt         *time.Time      `db:"confirmed_at"`
	CompletedAt         *time.Time      `db:"completed_at"`
	CancelledBy         *CancelledBy    `db:"cancelled_by"`
	CancellationReason  *string         `db:"cancellation_reason"`
	CancellationTime    *time.Time      `db:"cancellation_time"`
	Rating              *int            `db:"rating"`
	Review              *string         `db:"review"`
	RatedAt             *time.Time      `db:"rated_at"`
}

// NewBooking prices the booking flat at the service price and binds the service's provider.
func NewBooking(requester uuid.UUID, service *Service, reference string, bookingDate time.Time, slot TimeSlot,
	address Address, contact ContactPerson, instructions *string, requirements map[string]any, now time.Time) *Booking {
	if requirements == nil {
		requirements = map[string]any{}
	}
	return &Booking{
		BaseNoDelete:        newBaseNoDelete(now),
		Reference:           reference,
		RequesterID:         requester,
		ServiceID:           service.ID,
		ProviderID:          service.ProviderID,
		BookingDate:         bookingDate,
		TimeSlot:            slot,
		Address:             address,
		ContactPerson:       contact,
		SpecialInstructions: instructions,
		Requirements:        requirements,
		BasePrice:           service.Price,
		AdditionalCharges:   decimal.Zero,
		Discount:            decimal.Zero,
		TotalAmount:         service.Price,
		PaymentStatus:       PaymentStatusPending,
		Status:              BookingStatusPending,
	}
}

// CanBeCancelled holds while the booking is not yet underway and its date is
// more than window away from now.
func (b *Booking) CanBeCancelled(now time.Time, window time.Duration) bool {
	switch b.Status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusScheduled:
	default:
		return false
	}
	return b.BookingDate.Sub(now) > window
}

// TransitionTo applies a status change made by the provider or an admin.
func (b *Booking) TransitionTo(next BookingStatus, by CancelledBy, notes *string, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return apperror.InvalidTransition("booking", b.Status, next)
	}

	b.Status = next
	b.Touch(now)
	if notes != nil {
		b.ProviderNotes = notes
	}
	switch next {
	case BookingStatusConfirmed:
		b.ConfirmedAt = &now
	case BookingStatusCompleted:
		b.CompletedAt = &now
	case BookingStatusCancelled:
		b.CancelledBy = &by
		b.CancellationTime = &now
	}
	return nil
}

// Cancel enforces the cancellation window on top of the status check.
func (b *Booking) Cancel(by CancelledBy, reason *string, now time.Time, window time.Duration) error {
	if !b.CanBeCancelled(now, window) {
		return apperror.Conflict("booking cannot be cancelled").WithDetails(map[string]any{
			"status":       b.Status.String(),
			"booking_date": b.BookingDate,
			"window":       window.String(),
		})
	}
	b.Status = BookingStatusCancelled
	b.CancelledBy = &by
	b.CancellationReason = reason
	b.CancellationTime = &now
	b.Touch(now)
	return nil
}

func (b *Booking) Rate(rating int, review *string, now time.Time) error {
	if b.Status != BookingStatusCompleted {
		return apperror.InvalidState("only completed bookings can be rated, booking is " + b.Status.String())
	}
	if rating < 1 || rating > 5 {
		return apperror.Validation("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	b.Rating = &rating
	b.Review = review
	b.RatedAt = &now
	b.Touch(now)
	return nil
}

// ReleasesService reports whether moving into status ends the booking's hold on its service.
func (s BookingStatus) ReleasesService() bool {
	return s == BookingStatusCancelled || s == BookingStatusRejected || s == BookingStatusCompleted
}
