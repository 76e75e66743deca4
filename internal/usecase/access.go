package usecase

import "waste-marketplace/internal/data/entity"

// access is the caller's relationship to one aggregate, resolved once per call.
type access struct {
	principal       entity.Principal
	isOwner         bool // listing owner or booking requester
	isBoundProvider bool
}

func listingAccess(p entity.Principal, l *entity.Listing) access {
	return access{
		principal:       p,
		isOwner:         l.OwnerID == p.ID,
		isBoundProvider: l.IsBoundProvider(p.ID),
	}
}

func bookingAccess(p entity.Principal, b *entity.Booking) access {
	return access{
		principal:       p,
		isOwner:         b.RequesterID == p.ID,
		isBoundProvider: b.ProviderID == p.ID,
	}
}

func (a access) isAdmin() bool {
	return a.principal.IsAdmin()
}

func (a access) canView() bool {
	return a.isOwner || a.isBoundProvider || a.isAdmin()
}

// canSeeOffer hides competing bids from everyone except the owner and admins.
func (a access) canSeeOffer(o entity.Offer) bool {
	return a.isOwner || a.isAdmin() || o.ProviderID == a.principal.ID
}

// cancelledBy derives who cancels from the first relationship that matches.
func (a access) cancelledBy() (entity.CancelledBy, bool) {
	switch {
	case a.isOwner:
		return entity.CancelledByUser, true
	case a.isBoundProvider:
		return entity.CancelledByProvider, true
	case a.isAdmin():
		return entity.CancelledByAdmin, true
	}
	return "", false
}
