package repository

import (
	"context"
	"errors"
	"testing"

	"waste-marketplace/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const updateBookingSQL = `UPDATE bookings SET status = \$3, .* WHERE id = \$1 AND status = \$2`

func TestBookingRepository_UpdateIsConditionalOnStatus(t *testing.T) {
	booking := &entity.Booking{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, Status: entity.BookingStatusConfirmed}

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"status unchanged", 1, nil},
		{"status moved on", 0, ErrStaleStatus},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := newMockDB(t)
			db.ExpectExec(updateBookingSQL).
				WithArgs(withArgs([]any{booking.ID, entity.BookingStatusPending, entity.BookingStatusConfirmed}, 11)...).
				WillReturnResult(pgxmock.NewResult("UPDATE", tc.affected))

			err := NewBookingRepository(db, zap.NewNop()).Update(context.Background(), booking, entity.BookingStatusPending)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestBookingRepository_CreateMapsReferenceCollision(t *testing.T) {
	booking := &entity.Booking{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, Reference: "BKG-20250310-090000-ABCD"}

	tests := []struct {
		name      string
		err       error
		duplicate bool
	}{
		{"reference taken", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "bookings_booking_reference_key"}, true},
		{"other unique key", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "bookings_pkey"}, false},
		{"connection lost", errors.New("conn closed"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := newMockDB(t)
			db.ExpectExec(`INSERT INTO bookings`).
				WithArgs(anyArgs(19)...).
				WillReturnError(tc.err)

			err := NewBookingRepository(db, zap.NewNop()).Create(context.Background(), booking)
			assert.Error(t, err)
			assert.Equal(t, tc.duplicate, errors.Is(err, ErrDuplicateReference))
		})
	}
}
