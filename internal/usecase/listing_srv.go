package usecase

import (
	"context"
	"errors"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/dto/request"
	"waste-marketplace/internal/dto/response"
	"waste-marketplace/internal/notification"
	"waste-marketplace/pkg/apperror"
	"waste-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ListingService interface {
	CreateListing(ctx context.Context, p entity.Principal, req *request.CreateListingRequest) (*response.ListingResponse, error)
	GetListing(ctx context.Context, p entity.Principal, listingID string) (*response.ListingResponse, error)
	ListMyListings(ctx context.Context, p entity.Principal, page request.PaginatedRequest) (*response.PaginatedResponse[response.ListingResponse], error)
	ListOpenListings(ctx context.Context, p entity.Principal, wasteType string, page request.PaginatedRequest) (*response.PaginatedResponse[response.ListingResponse], error)
	ListProviderListings(ctx context.Context, p entity.Principal, page request.PaginatedRequest) (*response.PaginatedResponse[response.ListingResponse], error)

	// Provider side
	SubmitOffer(ctx context.Context, p entity.Principal, listingID string, req *request.SubmitOfferRequest) (*response.OfferResponse, error)
	WithdrawOffer(ctx context.Context, p entity.Principal, listingID, offerID string) (*response.ListingResponse, error)
	UpdateStatus(ctx context.Context, p entity.Principal, listingID string, req *request.UpdateListingStatusRequest) (*response.ListingResponse, error)

	// Owner side
	AcceptOffer(ctx context.Context, p entity.Principal, listingID, offerID string) (*response.ListingResponse, error)
	RejectOffer(ctx context.Context, p entity.Principal, listingID, offerID string) (*response.ListingResponse, error)
	CancelListing(ctx context.Context, p entity.Principal, listingID string) (*response.ListingResponse, error)
	RatePickup(ctx context.Context, p entity.Principal, listingID string, req *request.RateRequest) (*response.ListingResponse, error)
}

type listingService struct {
	repo       *repository.Repository
	notify     *notifier
	maxRetries int
	log        *zap.Logger
	now        func() time.Time
}

func NewListingService(repo *repository.Repository, sink notification.Sink, config utils.ListingConfig, log *zap.Logger) ListingService {
	maxRetries := config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}
	log = log.With(zap.String("service", "listing"))
	return &listingService{
		repo:       repo,
		notify:     &notifier{sink: sink, users: repo.User, log: log},
		maxRetries: maxRetries,
		log:        log,
		now:        time.Now,
	}
}

func (s *listingService) load(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	listing, err := s.repo.Listing.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("failed to load listing", err)
	}
	if listing == nil {
		return nil, apperror.NotFoundWithID("listing", id.String())
	}
	return listing, nil
}

// mutate is the only write path for an existing listing. It applies fn to a
// fresh copy and saves it under the version read, reloading and re-running fn
// when another writer got there first.
func (s *listingService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(l *entity.Listing) error) (*entity.Listing, error) {
	for attempt := 1; ; attempt++ {
		listing, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}

		expected := listing.Version
		if err := fn(listing); err != nil {
			return nil, err
		}

		err = s.repo.Listing.Save(ctx, listing, expected)
		if err == nil {
			return listing, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperror.Internal("failed to save listing", err)
		}
		if attempt >= s.maxRetries {
			s.log.Warn("Listing write gave up after version conflicts",
				zap.String("op", op),
				zap.String("listing_id", id.String()),
				zap.Int("attempts", attempt),
			)
			return nil, apperror.Conflict("listing was modified concurrently, please retry")
		}
		s.log.Debug("Listing version conflict, retrying",
			zap.String("op", op),
			zap.String("listing_id", id.String()),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *listingService) view(p entity.Principal, l *entity.Listing) *response.ListingResponse {
	resp := response.ListingToResponse(l, listingAccess(p, l).canSeeOffer)
	return &resp
}

func listingEvent(l *entity.Listing, recipient uuid.UUID, kind entity.NotificationKind, title, message string, at time.Time) notification.Event {
	return notification.Event{
		RecipientID: recipient,
		Kind:        kind,
		Title:       title,
		Message:     message,
		Payload: map[string]any{
			"listing_id": l.ID.String(),
			"status":     l.Status.String(),
		},
		OccurredAt: at,
	}
}

func (s *listingService) CreateListing(ctx context.Context, p entity.Principal, req *request.CreateListingRequest) (*response.ListingResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create listing validation failed", zap.Error(err))
		return nil, err
	}

	listing, err := entity.NewListing(p.ID, entity.WasteType(req.WasteType), req.QuantityKg, *req.Address,
		req.Images, req.PreferredPickupAt, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Listing.Create(ctx, listing); err != nil {
		return nil, apperror.Internal("failed to create listing", err)
	}

	s.log.Info("Listing created",
		zap.String("listing_id", listing.ID.String()),
		zap.String("owner_id", p.ID.String()),
		zap.String("waste_type", string(listing.WasteType)),
	)
	return s.view(p, listing), nil
}

// GetListing shows a listing to its owner, its bound provider and admins. While
// bidding is open any offer-capable caller may view it; everyone else gets NotFound.
func (s *listingService) GetListing(ctx context.Context, p entity.Principal, listingID string) (*response.ListingResponse, error) {
	id, err := parseID(listingID, "listing_id")
	if err != nil {
		return nil, err
	}

	listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !listingAccess(p, listing).canView() && !(listing.Status.IsBidding() && p.Role.CanOffer()) {
		return nil, apperror.NotFoundWithID("listing", id.String())
	}
	return s.view(p, listing), nil
}

func (s *listingService) ListMyListings(ctx context.Context, p entity.Principal, page request.PaginatedRequest) (*response.PaginatedResponse[response.ListingResponse], error) {
	return paginate(ctx, page,
		func(ctx context.Context, limit, offset int) ([]*entity.Listing, error) {
			return s.repo.Listing.FindByOwner(ctx, p.ID, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.repo.Listing.CountByOwner(ctx, p.ID)
		},
		func(l *entity.Listing) response.ListingResponse { return *s.view(p, l) },
	)
}

func (s *listingService) ListOpenListings(ctx context.Context, p entity.Principal, wasteType string, page request.PaginatedRequest) (*response.PaginatedResponse[response.ListingResponse], error) {
	if !p.Role.CanOffer() {
		return nil, apperror.Forbidden("only providers and experts can browse open listings")
	}
	filter := entity.WasteType(wasteType)
	if filter != "" && !filter.Valid() {
		return nil, apperror.Validation("invalid waste type", map[string]any{"waste_type": wasteType})
	}

	return paginate(ctx, page,
		func(ctx context.Context, limit, offset int) ([]*entity.Listing, error) {
			return s.repo.Listing.FindOpen(ctx, filter, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.repo.Listing.CountOpen(ctx, filter)
		},
		func(l *entity.Listing) response.ListingResponse { return *s.view(p, l) },
	)
}

func (s *listingService) ListProviderListings(ctx context.Context, p entity.Principal, page request.PaginatedRequest) (*response.PaginatedResponse[response.ListingResponse], error) {
	return paginate(ctx, page,
		func(ctx context.Context, limit, offset int) ([]*entity.Listing, error) {
			return s.repo.Listing.FindByProvider(ctx, p.ID, limit, offset)
		},
		func(ctx context.Context) (int64, error) {
			return s.repo.Listing.CountByProvider(ctx, p.ID)
		},
		func(l *entity.Listing) response.ListingResponse { return *s.view(p, l) },
	)
}

func (s *listingService) SubmitOffer(ctx context.Context, p entity.Principal, listingID string, req *request.SubmitOfferRequest) (*response.OfferResponse, error) {
	if !p.Role.CanOffer() {
		return nil, apperror.Forbidden("only providers and experts can make offers")
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	id, err := parseID(listingID, "listing_id")
	if err != nil {
		return nil, err
	}

	listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID == p.ID {
		return nil, apperror.Forbidden("you cannot make an offer on your own listing")
	}

	offer, err := listing.NewOffer(p.ID, req.PricePerKg, req.Message, s.now())
	if err != nil {
		return nil, err
	}

	switch err := s.repo.Listing.AppendOffer(ctx, listing.ID, offer); {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperror.NotFoundWithID("listing", id.String())
	case errors.Is(err, repository.ErrListingClosed):
		return nil, apperror.InvalidState("listing no longer accepts offers")
	case err != nil:
		return nil, apperror.Internal("failed to submit offer", err)
	}

	s.log.Info("Offer submitted",
		zap.String("listing_id", listing.ID.String()),
		zap.String("offer_id", offer.ID.String()),
		zap.String("provider_id", p.ID.String()),
		zap.String("total_price", offer.TotalPrice.String()),
	)

	listing.Status = entity.ListingStatusOffered
	event := listingEvent(listing, listing.OwnerID, entity.NotificationSellWasteOffer,
		"New offer received", "A provider made an offer on your waste listing", offer.CreatedAt)
	event.Payload["offer_id"] = offer.ID.String()
	event.Payload["amount"] = offer.TotalPrice.String()
	event.Payload["price_per_kg"] = offer.PricePerKg.String()
	event.Payload["counterpart_name"] = s.notify.displayName(ctx, p.ID)
	s.notify.send(ctx, event)

	resp := response.OfferToResponse(listing.ID, *offer)
	return &resp, nil
}

func (s *listingService) AcceptOffer(ctx context.Context, p entity.Principal, listingID, offerID string) (*response.ListingResponse, error) {
	lid, err := parseID(listingID, "listing_id")
	if err != nil {
		return nil, err
	}
	oid, err := parseID(offerID, "offer_id")
	if err != nil {
		return nil, err
	}

	var accepted entity.Offer
	var losing []entity.Offer
	listing, err := s.mutate(ctx, lid, "accept offer", func(l *entity.Listing) error {
		if !listingAccess(p, l).isOwner {
			return apperror.Forbidden("only the listing owner can accept offers")
		}

		chosen, err := l.AcceptOffer(oid, s.now())
		if err != nil {
			return err
		}

		// every other offer's provider hears the outcome, including ones rejected earlier
		accepted = *chosen
		losing = losing[:0]
		for _, o := range l.Offers {
			if o.ID != chosen.ID {
				losing = append(losing, o)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Offer accepted",
		zap.String("listing_id", listing.ID.String()),
		zap.String("offer_id", accepted.ID.String()),
		zap.String("provider_id", accepted.ProviderID.String()),
		zap.Int("rejected", len(losing)),
	)

	ownerName := s.notify.displayName(ctx, p.ID)
	event := listingEvent(listing, accepted.ProviderID, entity.NotificationSellWasteStatus,
		"Offer accepted", "Your offer was accepted, please schedule the pickup", listing.UpdatedAt)
	event.Payload["offer_id"] = accepted.ID.String()
	event.Payload["offer_status"] = entity.OfferStatusAccepted.String()
	event.Payload["amount"] = accepted.TotalPrice.String()
	event.Payload["counterpart_name"] = ownerName
	s.notify.send(ctx, event)

	for _, o := range losing {
		event := listingEvent(listing, o.ProviderID, entity.NotificationSellWasteStatus,
			"Offer not selected", "The seller accepted another offer", listing.UpdatedAt)
		event.Payload["offer_id"] = o.ID.String()
		event.Payload["offer_status"] = entity.OfferStatusRejected.String()
		event.Payload["counterpart_name"] = ownerName
		s.notify.send(ctx, event)
	}

	return s.view(p, listing), nil
}

func (s *listingService) RejectOffer(ctx context.Context, p entity.Principal, listingID, offerID string) (*response.ListingResponse, error) {
	lid, err := parseID(listingID, "listing_id")
	if err != nil {
		return nil, err
	}
	oid, err := parseID(offerID, "offer_id")
	if err != nil {
		return nil, err
	}

	var rejected entity.Offer
	listing, err := s.mutate(ctx, lid, "reject offer", func(l *entity.Listing) error {
		if !listingAccess(p, l).isOwner {
			return apperror.Forbidden("only the listing owner can reject offers")
		}
		offer, err := l.RejectOffer(oid, s.now())
		if err != nil {
			return err
		}
		rejected = *offer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Offer rejected",
		zap.String("listing_id", listing.ID.String()),
		zap.String("offer_id", rejected.ID.String()),
	)

	event := listingEvent(listing, rejected.ProviderID, entity.NotificationSellWasteStatus,
		"Offer declined", "The seller declined your offer", listing.UpdatedAt)
	event.Payload["offer_id"] = rejected.ID.String()
	event.Payload["offer_status"] = entity.OfferStatusRejected.String()
	event.Payload["counterpart_name"] = s.notify.displayName(ctx, p.ID)
	s.notify.send(ctx, event)

	return s.view(p, listing), nil
}

func (s *listingService) WithdrawOffer(ctx context.Context, p entity.Principal, listingID, offerID string) (*response.ListingResponse, error) {
	lid, err := parseID(listingID, "listing_id")
	if err != nil {
		return nil, err
	}
	oid, err := parseID(offerID, "offer_id")
	if err != nil {
		return nil, err
	}

	var withdrawn entity.Offer
	listing, err := s.mutate(ctx, lid, "withdraw offer", func(l *entity.Listing) error {
		offer, err := l.WithdrawOffer(oid, p.ID, s.now())
		if err != nil {
			return err
		}
		withdrawn = offer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Offer withdrawn",
		zap.String("listing_id", listing.ID.String()),
		zap.String("offer_id", withdrawn.ID.String()),
		zap.String("listing_status", listing.Status.String()),
	)

	event := listingEvent(listing, listing.OwnerID, entity.NotificationSellWasteOffer,
		"Offer withdrawn", "A provider withdrew their offer", listing.UpdatedAt)
	event.Payload["offer_id"] = withdrawn.ID.String()
	event.Payload["counterpart_name"] = s.notify.displayName(ctx, p.ID)
	s.notify.send(ctx, event)

	return s.view(p, listing), nil
}

func (s *listingService) UpdateStatus(ctx context.Context, p entity.Principal, listingID string, req *request.UpdateListingStatusRequest) (*response.ListingResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	lid, err := parseID(listingID, "listing_id")
	if err != nil {
		return nil, err
	}

	next := entity.ListingStatus(req.Status)
	var previous entity.ListingStatus
	listing, err := s.mutate(ctx, lid, "update listing status", func(l *entity.Listing) error {
		if !listingAccess(p, l).isBoundProvider {
			return apperror.Forbidden("only the provider bound to this listing can update its status")
		}
		previous = l.Status
		return l.TransitionTo(next, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Listing status updated",
		zap.String("listing_id", listing.ID.String()),
		zap.String("from", previous.String()),
		zap.String("to", next.String()),
	)

	event := listingEvent(listing, listing.OwnerID, entity.NotificationSellWasteStatus,
		"Pickup "+next.String(), "Your waste pickup is now "+next.String(), listing.UpdatedAt)
	event.Payload["previous_status"] = previous.String()
	event.Payload["counterpart_name"] = s.notify.displayName(ctx, p.ID)
	if listing.FinalizedPrice != nil {
		event.Payload["amount"] = listing.FinalizedPrice.String()
	}
	s.notify.send(ctx, event)

	return s.view(p, listing), nil
}

func (s *listingService) CancelListing(ctx context.Context, p entity.Principal, listingID string) (*response.ListingResponse, error) {
	lid, err := parseID(listingID, "listing_id")
	if err != nil {
		return nil, err
	}

	listing, err := s.mutate(ctx, lid, "cancel listing", func(l *entity.Listing) error {
		if !listingAccess(p, l).isOwner {
			return apperror.Forbidden("only the listing owner can cancel it")
		}
		return l.Cancel(s.now())
	})
	if err != nil {
		return nil, err
	}

	providers := listing.OfferProviders()
	s.log.Info("Listing cancelled",
		zap.String("listing_id", listing.ID.String()),
		zap.Int("notified_providers", len(providers)),
	)

	for _, provider := range providers {
		s.notify.send(ctx, listingEvent(listing, provider, entity.NotificationSellWasteStatus,
			"Listing cancelled", "The seller cancelled a listing you made an offer on", listing.UpdatedAt))
	}

	return s.view(p, listing), nil
}

func (s *listingService) RatePickup(ctx context.Context, p entity.Principal, listingID string, req *request.RateRequest) (*response.ListingResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	lid, err := parseID(listingID, "listing_id")
	if err != nil {
		return nil, err
	}

	listing, err := s.mutate(ctx, lid, "rate pickup", func(l *entity.Listing) error {
		if !listingAccess(p, l).isOwner {
			return apperror.Forbidden("only the listing owner can rate the pickup")
		}
		return l.Rate(req.Rating, req.Review, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Pickup rated",
		zap.String("listing_id", listing.ID.String()),
		zap.Int("rating", req.Rating),
	)

	if listing.ProviderID != nil {
		event := listingEvent(listing, *listing.ProviderID, entity.NotificationSellWasteStatus,
			"New rating", "The seller rated your pickup", listing.UpdatedAt)
		event.Payload["rating"] = req.Rating
		event.Payload["counterpart_name"] = s.notify.displayName(ctx, p.ID)
		s.notify.send(ctx, event)
	}

	return s.view(p, listing), nil
}
