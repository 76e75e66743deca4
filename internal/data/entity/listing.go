package entity

import (
	"time"

	"waste-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WasteType string

const (
	WasteFood         WasteType = "food_waste"
	WasteGarden       WasteType = "garden_waste"
	WastePaper        WasteType = "paper"
	WasteCardboard    WasteType = "cardboard"
	WasteManure       WasteType = "manure"
	WasteAgricultural WasteType = "agricultural"
	WasteMixedOrganic WasteType = "mixed_organic"
	WasteOther        WasteType = "other"
)

func (w WasteType) Valid() bool {
	switch w {
	case WasteFood, WasteGarden, WastePaper, WasteCardboard,
		WasteManure, WasteAgricultural, WasteMixedOrganic, WasteOther:
		return true
	}
	return false
}

type ListingStatus string

const (
	ListingStatusOpen      ListingStatus = "open"
	ListingStatusOffered   ListingStatus = "offered"
	ListingStatusAccepted  ListingStatus = "accepted"
	ListingStatusScheduled ListingStatus = "scheduled"
	ListingStatusCompleted ListingStatus = "completed"
	ListingStatusCancelled ListingStatus = "cancelled"
	ListingStatusRejected  ListingStatus = "rejected"
)

func (s ListingStatus) String() string { return string(s) }

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusOpen, ListingStatusOffered, ListingStatusAccepted, ListingStatusScheduled,
		ListingStatusCompleted, ListingStatusCancelled, ListingStatusRejected:
		return true
	}
	return false
}

// IsBidding reports whether offers may still be added, withdrawn or decided.
func (s ListingStatus) IsBidding() bool {
	return s == ListingStatusOpen || s == ListingStatusOffered
}

// HasBoundProvider reports the states in which provider and finalized price must be set.
func (s ListingStatus) HasBoundProvider() bool {
	return s == ListingStatusAccepted || s == ListingStatusScheduled || s == ListingStatusCompleted
}

// listingTransitions holds the post-acceptance moves a bound provider may make.
var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingStatusAccepted:  {ListingStatusScheduled, ListingStatusCancelled},
	ListingStatusScheduled: {ListingStatusCompleted, ListingStatusCancelled},
}

func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	for _, allowed := range listingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
)

func (s OfferStatus) String() string { return string(s) }

type CancelledBy string

const (
	CancelledByUser     CancelledBy = "user"
	CancelledByProvider CancelledBy = "provider"
	CancelledByAdmin    CancelledBy = "admin"
	CancelledBySystem   CancelledBy = "system"
)

type Offer struct {
	ID         uuid.UUID       `db:"id"`
	ProviderID uuid.UUID       `db:"provider_id"`
	PricePerKg decimal.Decimal `db:"price_per_kg"`
	TotalPrice decimal.Decimal `db:"total_price"`
	Message    *string         `db:"message"`
	Status     OfferStatus     `db:"status"`
	CreatedAt  time.Time       `db:"created_at"`
	AcceptedAt *time.Time      `db:"accepted_at"`
}

type Listing struct {
	BaseNoDelete
	OwnerID           uuid.UUID        `db:"owner_id"`
	WasteType         WasteType        `db:"waste_type"`
	QuantityKg        decimal.Decimal  `db:"quantity_kg"`
	Address           Address          `db:"address"`
	Images            []string         `db:"images"`
	PreferredPickupAt *time.Time       `db:"preferred_pickup_at"`
	Status            ListingStatus    `db:"status"`
	Offers            []Offer          `db:"-"`
	AcceptedOfferID   *uuid.UUID       `db:"accepted_offer_id"`
	ProviderID        *uuid.UUID       `db:"provider_id"`
	FinalizedPrice    *decimal.Decimal `db:"finalized_price"`
	CompletedAt       *time.Time       `db:"completed_at"`
	CancelledAt       *time.Time       `db:"cancelled_at"`
	CancelledBy       *CancelledBy     `db:"cancelled_by"`
	UserRating        *int             `db:"user_rating"`
	UserReview        *string          `db:"user_review"`
	RatedAt           *time.Time       `db:"rated_at"`
	Version           int64            `db:"version"`
}

// NewListing validates the seller's input and produces an open listing without offers.
func NewListing(owner uuid.UUID, wasteType WasteType, quantityKg decimal.Decimal, address Address, images []string, preferredPickupAt *time.Time, now time.Time) (*Listing, error) {
	if !wasteType.Valid() {
		return nil, apperror.Validation("invalid waste type", map[string]any{"waste_type": string(wasteType)})
	}
	if !quantityKg.IsPositive() {
		return nil, apperror.Validation("quantity must be greater than zero", map[string]any{"quantity_kg": quantityKg.String()})
	}
	if address.IsZero() {
		return nil, apperror.Validation("address is required", nil)
	}
	if images == nil {
		images = []string{}
	}

	return &Listing{
		BaseNoDelete:      newBaseNoDelete(now),
		OwnerID:           owner,
		WasteType:         wasteType,
		QuantityKg:        quantityKg,
		Address:           address,
		Images:            images,
		PreferredPickupAt: preferredPickupAt,
		Status:            ListingStatusOpen,
		Offers:            []Offer{},
		Version:           1,
	}, nil
}

// NewOffer prices a bid against the listing's quantity. The total is frozen here.
func (l *Listing) NewOffer(provider uuid.UUID, pricePerKg decimal.Decimal, message *string, now time.Time) (*Offer, error) {
	if !pricePerKg.IsPositive() {
		return nil, apperror.Validation("price per kg must be greater than zero", map[string]any{"price_per_kg": pricePerKg.String()})
	}
	if !l.Status.IsBidding() {
		return nil, apperror.InvalidState("listing " + l.Status.String() + " no longer accepts offers")
	}

	return &Offer{
		ID:         uuid.New(),
		ProviderID: provider,
		PricePerKg: pricePerKg,
		TotalPrice: OfferTotal(pricePerKg, l.QuantityKg),
		Message:    message,
		Status:     OfferStatusPending,
		CreatedAt:  now,
	}, nil
}

func OfferTotal(pricePerKg, quantityKg decimal.Decimal) decimal.Decimal {
	return pricePerKg.Mul(quantityKg).Round(2)
}

// AppendOffer adds the offer and moves an open listing to offered.
func (l *Listing) AppendOffer(offer Offer, now time.Time) error {
	if !l.Status.IsBidding() {
		return apperror.InvalidState("listing " + l.Status.String() + " no longer accepts offers")
	}
	l.Offers = append(l.Offers, offer)
	l.Status = ListingStatusOffered
	l.Touch(now)
	return nil
}

func (l *Listing) FindOffer(offerID uuid.UUID) (int, *Offer) {
	for i := range l.Offers {
		if l.Offers[i].ID == offerID {
			return i, &l.Offers[i]
		}
	}
	return -1, nil
}

// AcceptOffer applies the whole acceptance to the aggregate in one step:
// the chosen offer is accepted, every sibling is rejected and the provider is bound.
func (l *Listing) AcceptOffer(offerID uuid.UUID, now time.Time) (*Offer, error) {
	if !l.Status.IsBidding() {
		return nil, apperror.InvalidTransition("listing", l.Status, ListingStatusAccepted)
	}
	idx, chosen := l.FindOffer(offerID)
	if chosen == nil {
		return nil, apperror.NotFoundWithID("offer", offerID.String())
	}
	if chosen.Status != OfferStatusPending {
		return nil, apperror.InvalidTransition("offer", chosen.Status, OfferStatusAccepted)
	}

	for i := range l.Offers {
		if i == idx {
			continue
		}
		l.Offers[i].Status = OfferStatusRejected
	}

	acceptedAt := now
	chosen.Status = OfferStatusAccepted
	chosen.AcceptedAt = &acceptedAt

	offerRef := chosen.ID
	provider := chosen.ProviderID
	price := chosen.TotalPrice
	l.AcceptedOfferID = &offerRef
	l.ProviderID = &provider
	l.FinalizedPrice = &price
	l.Status = ListingStatusAccepted
	l.Touch(now)

	return chosen, nil
}

// RejectOffer declines a single pending offer and leaves the listing open for bidding.
func (l *Listing) RejectOffer(offerID uuid.UUID, now time.Time) (*Offer, error) {
	if !l.Status.IsBidding() {
		return nil, apperror.InvalidState("listing " + l.Status.String() + " is no longer taking decisions on offers")
	}
	_, offer := l.FindOffer(offerID)
	if offer == nil {
		return nil, apperror.NotFoundWithID("offer", offerID.String())
	}
	if offer.Status != OfferStatusPending {
		return nil, apperror.InvalidTransition("offer", offer.Status, OfferStatusRejected)
	}
	offer.Status = OfferStatusRejected
	l.Touch(now)
	return offer, nil
}

// WithdrawOffer removes the provider's own pending offer. An offered listing
// with nothing left reverts to open.
func (l *Listing) WithdrawOffer(offerID, provider uuid.UUID, now time.Time) (Offer, error) {
	idx, offer := l.FindOffer(offerID)
	if offer == nil {
		return Offer{}, apperror.NotFoundWithID("offer", offerID.String())
	}
	if offer.ProviderID != provider {
		return Offer{}, apperror.Forbidden("only the provider who made the offer can withdraw it")
	}
	if !l.Status.IsBidding() {
		return Offer{}, apperror.InvalidState("listing " + l.Status.String() + " no longer allows withdrawing offers")
	}
	if offer.Status != OfferStatusPending {
		return Offer{}, apperror.InvalidState("only pending offers can be withdrawn, offer is " + offer.Status.String())
	}

	removed := *offer
	l.Offers = append(l.Offers[:idx:idx], l.Offers[idx+1:]...)
	if l.Status == ListingStatusOffered && len(l.Offers) == 0 {
		l.Status = ListingStatusOpen
	}
	l.Touch(now)
	return removed, nil
}

// TransitionTo advances the post-acceptance lifecycle driven by the bound provider.
func (l *Listing) TransitionTo(next ListingStatus, now time.Time) error {
	if !l.Status.CanTransitionTo(next) {
		return apperror.InvalidTransition("listing", l.Status, next)
	}

	l.Status = next
	l.Touch(now)
	switch next {
	case ListingStatusCompleted:
		l.CompletedAt = &now
	case ListingStatusCancelled:
		by := CancelledByProvider
		l.CancelledAt = &now
		l.CancelledBy = &by
	}
	return nil
}

// Cancel is the owner-initiated cancel, allowed only before a provider is bound.
func (l *Listing) Cancel(now time.Time) error {
	if !l.Status.IsBidding() {
		return apperror.InvalidTransition("listing", l.Status, ListingStatusCancelled)
	}
	by := CancelledByUser
	l.Status = ListingStatusCancelled
	l.CancelledAt = &now
	l.CancelledBy = &by
	l.Touch(now)
	return nil
}

// Rate records the owner's rating. Rating again overwrites the previous one.
func (l *Listing) Rate(rating int, review *string, now time.Time) error {
	if l.Status != ListingStatusCompleted {
		return apperror.InvalidState("only completed pickups can be rated, listing is " + l.Status.String())
	}
	if rating < 1 || rating > 5 {
		return apperror.Validation("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	l.UserRating = &rating
	l.UserReview = review
	l.RatedAt = &now
	l.Touch(now)
	return nil
}

// OfferProviders returns each provider that bid on the listing once, in arrival order.
func (l *Listing) OfferProviders() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(l.Offers))
	providers := make([]uuid.UUID, 0, len(l.Offers))
	for _, o := range l.Offers {
		if _, ok := seen[o.ProviderID]; ok {
			continue
		}
		seen[o.ProviderID] = struct{}{}
		providers = append(providers, o.ProviderID)
	}
	return providers
}

func (l *Listing) IsBoundProvider(id uuid.UUID) bool {
	return l.ProviderID != nil && *l.ProviderID == id
}

// Clone deep-copies the aggregate so a failed mutation never leaks into a cached copy.
func (l *Listing) Clone() *Listing {
	c := *l
	c.Offers = append([]Offer(nil), l.Offers...)
	c.Images = append([]string(nil), l.Images...)
	return &c
}
