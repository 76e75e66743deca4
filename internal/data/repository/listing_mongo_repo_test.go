package repository

import (
	"testing"
	"time"

	"waste-marketplace/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingDocument_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	pickup := now.Add(48 * time.Hour)

	l, err := entity.NewListing(uuid.New(), entity.WasteFood, decimal.RequireFromString("12.5"),
		entity.Address{Street: "Jl. Merdeka 1", City: "Bandung"}, []string{"a.jpg"}, &pickup, now)
	require.NoError(t, err)

	note := "can pick up tomorrow"
	for _, price := range []string{"1500", "1750.25"} {
		o, err := l.NewOffer(uuid.New(), decimal.RequireFromString(price), &note, now)
		require.NoError(t, err)
		require.NoError(t, l.AppendOffer(*o, now))
	}
	winner, err := l.AcceptOffer(l.Offers[1].ID, now.Add(time.Hour))
	require.NoError(t, err)
	l.Version = 4

	got, err := toListingDocument(l).toEntity()
	require.NoError(t, err)

	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, l.OwnerID, got.OwnerID)
	assert.Equal(t, entity.ListingStatusAccepted, got.Status)
	assert.True(t, l.QuantityKg.Equal(got.QuantityKg))
	assert.Equal(t, l.Address, got.Address)
	assert.Equal(t, []string{"a.jpg"}, got.Images)
	assert.Equal(t, pickup, *got.PreferredPickupAt)
	assert.Equal(t, int64(4), got.Version)

	require.NotNil(t, got.ProviderID)
	assert.Equal(t, winner.ProviderID, *got.ProviderID)
	require.NotNil(t, got.AcceptedOfferID)
	assert.Equal(t, winner.ID, *got.AcceptedOfferID)
	require.NotNil(t, got.FinalizedPrice)
	assert.True(t, winner.TotalPrice.Equal(*got.FinalizedPrice))

	require.Len(t, got.Offers, 2)
	for i, o := range got.Offers {
		assert.Equal(t, l.Offers[i].ID, o.ID)
		assert.Equal(t, l.Offers[i].Status, o.Status)
		assert.True(t, l.Offers[i].TotalPrice.Equal(o.TotalPrice))
		assert.Equal(t, note, *o.Message)
	}
	assert.Equal(t, entity.OfferStatusRejected, got.Offers[0].Status)
	assert.NotNil(t, got.Offers[1].AcceptedAt)
}

func TestListingDocument_RejectsCorruptIDs(t *testing.T) {
	_, err := listingDocument{ID: "nope"}.toEntity()
	assert.Error(t, err)

	bad := "not-a-number"
	doc := listingDocument{ID: uuid.NewString(), OwnerID: uuid.NewString(), QuantityKg: "1", FinalizedPrice: &bad}
	_, err = doc.toEntity()
	assert.Error(t, err)
}

func TestOpenListingsFilter(t *testing.T) {
	all := openListingsFilter("")
	assert.NotContains(t, all, "waste_type")

	food := openListingsFilter(entity.WasteFood)
	assert.Equal(t, string(entity.WasteFood), food["waste_type"])
}
