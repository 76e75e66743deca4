package repository

import (
	"context"
	"testing"
	"time"

	"waste-marketplace/internal/data/entity"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	saveListingSQL  = `UPDATE listings SET status = \$3, .* WHERE id = \$1 AND version = \$2`
	lockListingSQL  = `SELECT status FROM listings WHERE id = \$1 FOR UPDATE`
	insertOfferSQL  = `INSERT INTO listing_offers \(id, listing_id, provider_id`
	markOfferedSQL  = `UPDATE listings SET status = \$2, version = version \+ 1, updated_at = \$3 WHERE id = \$1`
	pruneOffersSQL  = `DELETE FROM listing_offers WHERE listing_id = \$1 AND NOT \(id = ANY\(\$2\)\)`
	saveListingArgs = 11
)

func TestListingRepository_SaveGuardsVersion(t *testing.T) {
	db := newMockDB(t)
	repo := NewListingRepository(db, zap.NewNop())
	listing := &entity.Listing{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, Status: entity.ListingStatusCancelled, Version: 3}

	db.ExpectBegin()
	db.ExpectExec(saveListingSQL).
		WithArgs(withArgs([]any{listing.ID, int64(3)}, saveListingArgs)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	db.ExpectRollback()

	err := repo.Save(context.Background(), listing, 3)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(3), listing.Version)
}

func TestListingRepository_SaveBumpsVersion(t *testing.T) {
	db := newMockDB(t)
	repo := NewListingRepository(db, zap.NewNop())
	listing := &entity.Listing{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, Status: entity.ListingStatusCancelled, Version: 3}

	db.ExpectBegin()
	db.ExpectExec(saveListingSQL).
		WithArgs(withArgs([]any{listing.ID, int64(3)}, saveListingArgs)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	db.ExpectExec(pruneOffersSQL).
		WithArgs(listing.ID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	db.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), listing, 3))
	assert.Equal(t, int64(4), listing.Version)
}

func TestListingRepository_AppendOffer(t *testing.T) {
	listingID := uuid.New()
	offer := &entity.Offer{ID: uuid.New(), ProviderID: uuid.New(), Status: entity.OfferStatusPending,
		CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	t.Run("open listing", func(t *testing.T) {
		db := newMockDB(t)
		repo := NewListingRepository(db, zap.NewNop())

		db.ExpectBegin()
		db.ExpectQuery(lockListingSQL).WithArgs(listingID).
			WillReturnRows(db.NewRows([]string{"status"}).AddRow(entity.ListingStatusOpen))
		db.ExpectExec(insertOfferSQL).
			WithArgs(withArgs([]any{offer.ID, listingID, offer.ProviderID}, 5)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		db.ExpectExec(markOfferedSQL).
			WithArgs(listingID, entity.ListingStatusOffered, offer.CreatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		db.ExpectCommit()

		require.NoError(t, repo.AppendOffer(context.Background(), listingID, offer))
	})

	t.Run("closed listing", func(t *testing.T) {
		db := newMockDB(t)
		repo := NewListingRepository(db, zap.NewNop())

		db.ExpectBegin()
		db.ExpectQuery(lockListingSQL).WithArgs(listingID).
			WillReturnRows(db.NewRows([]string{"status"}).AddRow(entity.ListingStatusAccepted))
		db.ExpectRollback()

		assert.ErrorIs(t, repo.AppendOffer(context.Background(), listingID, offer), ErrListingClosed)
	})

	t.Run("missing listing", func(t *testing.T) {
		db := newMockDB(t)
		repo := NewListingRepository(db, zap.NewNop())

		db.ExpectBegin()
		db.ExpectQuery(lockListingSQL).WithArgs(listingID).
			WillReturnRows(db.NewRows([]string{"status"}))
		db.ExpectRollback()

		assert.ErrorIs(t, repo.AppendOffer(context.Background(), listingID, offer), ErrNotFound)
	})
}
