package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waste-marketplace/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// listingDocument embeds offers in the listing, so every write to the
// aggregate is a single-document update.
type listingDocument struct {
	ID                string          `bson:"_id"`
	OwnerID           string          `bson:"owner_id"`
	WasteType         string          `bson:"waste_type"`
	QuantityKg        string          `bson:"quantity_kg"`
	Address           entity.Address  `bson:"address"`
	Images            []string        `bson:"images"`
	PreferredPickupAt *time.Time      `bson:"preferred_pickup_at,omitempty"`
	Status            string          `bson:"status"`
	Offers            []offerDocument `bson:"offers"`
	AcceptedOfferID   *string         `bson:"accepted_offer_id,omitempty"`
	ProviderID        *string         `bson:"provider_id,omitempty"`
	FinalizedPrice    *string         `bson:"finalized_price,omitempty"`
	CompletedAt       *time.Time      `bson:"completed_at,omitempty"`
	CancelledAt       *time.Time      `bson:"cancelled_at,omitempty"`
	CancelledBy       *string         `bson:"cancelled_by,omitempty"`
	UserRating        *int            `bson:"user_rating,omitempty"`
	UserReview        *string         `bson:"user_review,omitempty"`
	RatedAt           *time.Time      `bson:"rated_at,omitempty"`
	Version           int64           `bson:"version"`
	CreatedAt         time.Time       `bson:"created_at"`
	UpdatedAt         time.Time       `bson:"updated_at"`
}

type offerDocument struct {
	ID         string     `bson:"id"`
	ProviderID string     `bson:"provider_id"`
	PricePerKg string     `bson:"price_per_kg"`
	TotalPrice string     `bson:"total_price"`
	Message    *string    `bson:"message,omitempty"`
	Status     string     `bson:"status"`
	CreatedAt  time.Time  `bson:"created_at"`
	AcceptedAt *time.Time `bson:"accepted_at,omitempty"`
}

type listingMongoRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
	log        *zap.Logger
}

func NewListingMongoRepository(collection *mongo.Collection, timeout time.Duration, log *zap.Logger) ListingRepository {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &listingMongoRepository{
		collection: collection,
		timeout:    timeout,
		log:        log.With(zap.String("repository", "listing_mongo")),
	}
}

// EnsureListingIndexes creates the indexes the list queries rely on.
func EnsureListingIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "waste_type", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create listing indexes: %w", err)
	}
	return nil
}

// withTimeout keeps a caller deadline that is longer than the default.
func (r *listingMongoRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) > r.timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func toOfferDocument(o entity.Offer) offerDocument {
	return offerDocument{
		ID:         o.ID.String(),
		ProviderID: o.ProviderID.String(),
		PricePerKg: o.PricePerKg.String(),
		TotalPrice: o.TotalPrice.String(),
		Message:    o.Message,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		AcceptedAt: o.AcceptedAt,
	}
}

func toListingDocument(l *entity.Listing) listingDocument {
	doc := listingDocument{
		ID:                l.ID.String(),
		OwnerID:           l.OwnerID.String(),
		WasteType:         string(l.WasteType),
		QuantityKg:        l.QuantityKg.String(),
		Address:           l.Address,
		Images:            l.Images,
		PreferredPickupAt: l.PreferredPickupAt,
		Status:            string(l.Status),
		Offers:            make([]offerDocument, 0, len(l.Offers)),
		CompletedAt:       l.CompletedAt,
		CancelledAt:       l.CancelledAt,
		UserRating:        l.UserRating,
		UserReview:        l.UserReview,
		RatedAt:           l.RatedAt,
		Version:           l.Version,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	for _, o := range l.Offers {
		doc.Offers = append(doc.Offers, toOfferDocument(o))
	}
	if l.AcceptedOfferID != nil {
		s := l.AcceptedOfferID.String()
		doc.AcceptedOfferID = &s
	}
	if l.ProviderID != nil {
		s := l.ProviderID.String()
		doc.ProviderID = &s
	}
	if l.FinalizedPrice != nil {
		s := l.FinalizedPrice.String()
		doc.FinalizedPrice = &s
	}
	if l.CancelledBy != nil {
		s := string(*l.CancelledBy)
		doc.CancelledBy = &s
	}
	return doc
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (d listingDocument) toEntity() (*entity.Listing, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("listing id %q: %w", d.ID, err)
	}
	owner, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("listing owner %q: %w", d.OwnerID, err)
	}
	quantity, err := decimal.NewFromString(d.QuantityKg)
	if err != nil {
		return nil, fmt.Errorf("listing quantity %q: %w", d.QuantityKg, err)
	}

	l := &entity.Listing{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        id,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		OwnerID:           owner,
		WasteType:         entity.WasteType(d.WasteType),
		QuantityKg:        quantity,
		Address:           d.Address,
		Images:            d.Images,
		PreferredPickupAt: d.PreferredPickupAt,
		Status:            entity.ListingStatus(d.Status),
		Offers:            make([]entity.Offer, 0, len(d.Offers)),
		CompletedAt:       d.CompletedAt,
		CancelledAt:       d.CancelledAt,
		UserRating:        d.UserRating,
		UserReview:        d.UserReview,
		RatedAt:           d.RatedAt,
		Version:           d.Version,
	}
	if l.Images == nil {
		l.Images = []string{}
	}

	if l.AcceptedOfferID, err = parseOptionalUUID(d.AcceptedOfferID); err != nil {
		return nil, fmt.Errorf("listing accepted offer: %w", err)
	}
	if l.ProviderID, err = parseOptionalUUID(d.ProviderID); err != nil {
		return nil, fmt.Errorf("listing provider: %w", err)
	}
	if d.FinalizedPrice != nil {
		price, err := decimal.NewFromString(*d.FinalizedPrice)
		if err != nil {
			return nil, fmt.Errorf("listing finalized price %q: %w", *d.FinalizedPrice, err)
		}
		l.FinalizedPrice = &price
	}
	if d.CancelledBy != nil {
		by := entity.CancelledBy(*d.CancelledBy)
		l.CancelledBy = &by
	}

	for _, od := range d.Offers {
		o, err := od.toEntity()
		if err != nil {
			return nil, err
		}
		l.Offers = append(l.Offers, o)
	}

	return l, nil
}

func (d offerDocument) toEntity() (entity.Offer, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return entity.Offer{}, fmt.Errorf("offer id %q: %w", d.ID, err)
	}
	provider, err := uuid.Parse(d.ProviderID)
	if err != nil {
		return entity.Offer{}, fmt.Errorf("offer provider %q: %w", d.ProviderID, err)
	}
	perKg, err := decimal.NewFromString(d.PricePerKg)
	if err != nil {
		return entity.Offer{}, fmt.Errorf("offer price %q: %w", d.PricePerKg, err)
	}
	total, err := decimal.NewFromString(d.TotalPrice)
	if err != nil {
		return entity.Offer{}, fmt.Errorf("offer total %q: %w", d.TotalPrice, err)
	}

	return entity.Offer{
		ID:         id,
		ProviderID: provider,
		PricePerKg: perKg,
		TotalPrice: total,
		Message:    d.Message,
		Status:     entity.OfferStatus(d.Status),
		CreatedAt:  d.CreatedAt,
		AcceptedAt: d.AcceptedAt,
	}, nil
}

func (r *listingMongoRepository) Create(ctx context.Context, listing *entity.Listing) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, toListingDocument(listing)); err != nil {
		r.log.Error("Failed to create listing",
			zap.Error(err),
			zap.String("owner_id", listing.OwnerID.String()),
		)
		return fmt.Errorf("create listing %s: %w", listing.ID, err)
	}
	return nil
}

func (r *listingMongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc listingDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find listing by ID",
			zap.Error(err),
			zap.String("listing_id", id.String()),
		)
		return nil, fmt.Errorf("find listing by ID %s: %w", id, err)
	}

	return doc.toEntity()
}

func (r *listingMongoRepository) AppendOffer(ctx context.Context, listingID uuid.UUID, offer *entity.Offer) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"_id":    listingID.String(),
		"status": bson.M{"$in": bson.A{string(entity.ListingStatusOpen), string(entity.ListingStatusOffered)}},
	}
	update := bson.M{
		"$push": bson.M{"offers": toOfferDocument(*offer)},
		"$set": bson.M{
			"status":     string(entity.ListingStatusOffered),
			"updated_at": offer.CreatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.log.Error("Failed to append offer",
			zap.Error(err),
			zap.String("listing_id", listingID.String()),
		)
		return fmt.Errorf("append offer to listing %s: %w", listingID, err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": listingID.String()}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check listing %s: %w", listingID, err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrListingClosed
}

func (r *listingMongoRepository) Save(ctx context.Context, listing *entity.Listing, expectedVersion int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc := toListingDocument(listing)
	doc.Version = expectedVersion + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": expectedVersion}, doc)
	if err != nil {
		r.log.Error("Failed to save listing",
			zap.Error(err),
			zap.String("listing_id", doc.ID),
			zap.Int64("expected_version", expectedVersion),
		)
		return fmt.Errorf("save listing %s: %w", doc.ID, err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	listing.Version = doc.Version
	return nil
}

func (r *listingMongoRepository) findMany(ctx context.Context, op string, filter bson.M, sortField string, limit, offset int) ([]*entity.Listing, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.D{{Key: sortField, Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.log.Error("Failed to query listings", zap.Error(err), zap.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	listings := make([]*entity.Listing, 0, len(docs))
	for _, d := range docs {
		l, err := d.toEntity()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func (r *listingMongoRepository) count(ctx context.Context, op string, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		r.log.Error("Failed to count listings", zap.Error(err), zap.String("op", op))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func openListingsFilter(wasteType entity.WasteType) bson.M {
	filter := bson.M{
		"status": bson.M{"$in": bson.A{string(entity.ListingStatusOpen), string(entity.ListingStatusOffered)}},
	}
	if wasteType != "" {
		filter["waste_type"] = string(wasteType)
	}
	return filter
}

func (r *listingMongoRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*entity.Listing, error) {
	return r.findMany(ctx, "find listings by owner", bson.M{"owner_id": ownerID.String()}, "created_at", limit, offset)
}

func (r *listingMongoRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return r.count(ctx, "count listings by owner", bson.M{"owner_id": ownerID.String()})
}

func (r *listingMongoRepository) FindOpen(ctx context.Context, wasteType entity.WasteType, limit, offset int) ([]*entity.Listing, error) {
	return r.findMany(ctx, "find open listings", openListingsFilter(wasteType), "created_at", limit, offset)
}

func (r *listingMongoRepository) CountOpen(ctx context.Context, wasteType entity.WasteType) (int64, error) {
	return r.count(ctx, "count open listings", openListingsFilter(wasteType))
}

func (r *listingMongoRepository) FindByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*entity.Listing, error) {
	return r.findMany(ctx, "find listings by provider", bson.M{"provider_id": providerID.String()}, "updated_at", limit, offset)
}

func (r *listingMongoRepository) CountByProvider(ctx context.Context, providerID uuid.UUID) (int64, error) {
	return r.count(ctx, "count listings by provider", bson.M{"provider_id": providerID.String()})
}
