package repository

import (
	"context"
	"errors"
	"fmt"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ListingRepository persists the listing aggregate together with its offers.
// Offers are only ever written through AppendOffer and Save.
type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error)

	// AppendOffer adds the offer without rewriting the aggregate, so concurrent
	// submissions on the same listing all land. Returns ErrNotFound or ErrListingClosed.
	AppendOffer(ctx context.Context, listingID uuid.UUID, offer *entity.Offer) error

	// Save writes the whole aggregate if its stored version still equals
	// expectedVersion, otherwise ErrVersionConflict. On success listing.Version is bumped.
	Save(ctx context.Context, listing *entity.Listing, expectedVersion int64) error

	FindByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*entity.Listing, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	FindOpen(ctx context.Context, wasteType entity.WasteType, limit, offset int) ([]*entity.Listing, error)
	CountOpen(ctx context.Context, wasteType entity.WasteType) (int64, error)
	FindByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*entity.Listing, error)
	CountByProvider(ctx context.Context, providerID uuid.UUID) (int64, error)
}

type listingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewListingRepository(db database.PgxIface, log *zap.Logger) ListingRepository {
	return &listingRepository{
		db:  db,
		log: log.With(zap.String("repository", "listing")),
	}
}

const listingColumns = `id, owner_id, waste_type, quantity_kg, address, images, preferred_pickup_at, status,
	accepted_offer_id, provider_id, finalized_price, completed_at, cancelled_at, cancelled_by,
	user_rating, user_review, rated_at, version, created_at, updated_at`

const openListingFilter = `status IN ('open', 'offered') AND ($1::text = '' OR waste_type = $1)`

func scanListing(row pgx.Row) (*entity.Listing, error) {
	var l entity.Listing
	var finalized decimal.NullDecimal

	err := row.Scan(
		&l.ID,
		&l.OwnerID,
		&l.WasteType,
		&l.QuantityKg,
		&l.Address,
		&l.Images,
		&l.PreferredPickupAt,
		&l.Status,
		&l.AcceptedOfferID,
		&l.ProviderID,
		&finalized,
		&l.CompletedAt,
		&l.CancelledAt,
		&l.CancelledBy,
		&l.UserRating,
		&l.UserReview,
		&l.RatedAt,
		&l.Version,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if finalized.Valid {
		price := finalized.Decimal
		l.FinalizedPrice = &price
	}
	l.Offers = []entity.Offer{}
	return &l, nil
}

func (r *listingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	query := `
		INSERT INTO listings (id, owner_id, waste_type, quantity_kg, address, images, preferred_pickup_at,
		                      status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		listing.ID,
		listing.OwnerID,
		listing.WasteType,
		listing.QuantityKg,
		listing.Address,
		listing.Images,
		listing.PreferredPickupAt,
		listing.Status,
		listing.Version,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create listing",
			zap.Error(err),
			zap.String("owner_id", listing.OwnerID.String()),
		)
		return fmt.Errorf("create listing %s: %w", listing.ID, err)
	}

	return nil
}

func (r *listingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	listing, err := scanListing(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find listing by ID",
			zap.Error(err),
			zap.String("listing_id", id.String()),
		)
		return nil, fmt.Errorf("find listing by ID %s: %w", id, err)
	}

	offers, err := r.loadOffers(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if o, ok := offers[id]; ok {
		listing.Offers = o
	}

	return listing, nil
}

// loadOffers returns offers grouped by listing, in arrival order.
func (r *listingRepository) loadOffers(ctx context.Context, listingIDs []uuid.UUID) (map[uuid.UUID][]entity.Offer, error) {
	result := make(map[uuid.UUID][]entity.Offer, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, listing_id, provider_id, price_per_kg, total_price, message, status, created_at, accepted_at
		FROM listing_offers
		WHERE listing_id = ANY($1)
		ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query, listingIDs)
	if err != nil {
		r.log.Error("Failed to load offers",
			zap.Error(err),
			zap.Int("listing_count", len(listingIDs)),
		)
		return nil, fmt.Errorf("load offers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o entity.Offer
		var listingID uuid.UUID
		err := rows.Scan(
			&o.ID,
			&listingID,
			&o.ProviderID,
			&o.PricePerKg,
			&o.TotalPrice,
			&o.Message,
			&o.Status,
			&o.CreatedAt,
			&o.AcceptedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan offer row", zap.Error(err))
			return nil, fmt.Errorf("scan offer row: %w", err)
		}
		result[listingID] = append(result[listingID], o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}

	return result, nil
}

func (r *listingRepository) AppendOffer(ctx context.Context, listingID uuid.UUID, offer *entity.Offer) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		// the row lock serializes appends so seq follows arrival order
		var status entity.ListingStatus
		err := tx.QueryRow(ctx, `SELECT status FROM listings WHERE id = $1 FOR UPDATE`, listingID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock listing %s: %w", listingID, err)
		}
		if !status.IsBidding() {
			return ErrListingClosed
		}

		insert := `
			INSERT INTO listing_offers (id, listing_id, provider_id, price_per_kg, total_price, message, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, insert,
			offer.ID,
			listingID,
			offer.ProviderID,
			offer.PricePerKg,
			offer.TotalPrice,
			offer.Message,
			offer.Status,
			offer.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert offer %s: %w", offer.ID, err)
		}

		update := `UPDATE listings SET status = $2, version = version + 1, updated_at = $3 WHERE id = $1`
		if _, err := tx.Exec(ctx, update, listingID, entity.ListingStatusOffered, offer.CreatedAt); err != nil {
			return fmt.Errorf("mark listing %s offered: %w", listingID, err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrListingClosed) {
		r.log.Error("Failed to append offer",
			zap.Error(err),
			zap.String("listing_id", listingID.String()),
			zap.String("provider_id", offer.ProviderID.String()),
		)
	}
	return err
}

func (r *listingRepository) Save(ctx context.Context, listing *entity.Listing, expectedVersion int64) error {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		update := `
			UPDATE listings
			SET status = $3, accepted_offer_id = $4, provider_id = $5, finalized_price = $6,
			    completed_at = $7, cancelled_at = $8, cancelled_by = $9, user_rating = $10,
			    user_review = $11, rated_at = $12, updated_at = $13, version = version + 1
			WHERE id = $1 AND version = $2
		`
		result, err := tx.Exec(ctx, update,
			listing.ID,
			expectedVersion,
			listing.Status,
			listing.AcceptedOfferID,
			listing.ProviderID,
			listing.FinalizedPrice,
			listing.CompletedAt,
			listing.CancelledAt,
			listing.CancelledBy,
			listing.UserRating,
			listing.UserReview,
			listing.RatedAt,
			listing.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update listing %s: %w", listing.ID, err)
		}
		if result.RowsAffected() == 0 {
			return ErrVersionConflict
		}

		// withdrawn offers are removed outright
		keep := make([]uuid.UUID, 0, len(listing.Offers))
		for _, o := range listing.Offers {
			keep = append(keep, o.ID)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM listing_offers WHERE listing_id = $1 AND NOT (id = ANY($2))`,
			listing.ID, keep,
		); err != nil {
			return fmt.Errorf("prune offers of listing %s: %w", listing.ID, err)
		}

		batch := &pgx.Batch{}
		for _, o := range listing.Offers {
			batch.Queue(
				`UPDATE listing_offers SET status = $3, accepted_at = $4 WHERE id = $1 AND listing_id = $2`,
				o.ID, listing.ID, o.Status, o.AcceptedAt,
			)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("update offers of listing %s: %w", listing.ID, err)
			}
		}
		return nil
	})

	if err != nil {
		if !errors.Is(err, ErrVersionConflict) {
			r.log.Error("Failed to save listing",
				zap.Error(err),
				zap.String("listing_id", listing.ID.String()),
				zap.Int64("expected_version", expectedVersion),
			)
		}
		return err
	}

	listing.Version = expectedVersion + 1
	return nil
}

func (r *listingRepository) findMany(ctx context.Context, op, query string, args ...any) ([]*entity.Listing, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query listings", zap.Error(err), zap.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	listings := []*entity.Listing{}
	ids := []uuid.UUID{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			r.log.Error("Failed to scan listing row", zap.Error(err))
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		listings = append(listings, listing)
		ids = append(ids, listing.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	offers, err := r.loadOffers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range listings {
		if o, ok := offers[l.ID]; ok {
			l.Offers = o
		}
	}

	return listings, nil
}

func (r *listingRepository) count(ctx context.Context, op, query string, args ...any) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count listings", zap.Error(err), zap.String("op", op))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (r *listingRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*entity.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.findMany(ctx, "find listings by owner", query, ownerID, limit, offset)
}

func (r *listingRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return r.count(ctx, "count listings by owner", `SELECT COUNT(*) FROM listings WHERE owner_id = $1`, ownerID)
}

func (r *listingRepository) FindOpen(ctx context.Context, wasteType entity.WasteType, limit, offset int) ([]*entity.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE ` + openListingFilter + ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.findMany(ctx, "find open listings", query, string(wasteType), limit, offset)
}

func (r *listingRepository) CountOpen(ctx context.Context, wasteType entity.WasteType) (int64, error) {
	return r.count(ctx, "count open listings", `SELECT COUNT(*) FROM listings WHERE `+openListingFilter, string(wasteType))
}

func (r *listingRepository) FindByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*entity.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE provider_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	return r.findMany(ctx, "find listings by provider", query, providerID, limit, offset)
}

func (r *listingRepository) CountByProvider(ctx context.Context, providerID uuid.UUID) (int64, error) {
	return r.count(ctx, "count listings by provider", `SELECT COUNT(*) FROM listings WHERE provider_id = $1`, providerID)
}
