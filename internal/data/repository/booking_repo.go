package repository

import (
	"context"
	"errors"
	"fmt"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByReference(ctx context.Context, reference string) (*entity.Booking, error)
	FindByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByRequester(ctx context.Context, requesterID uuid.UUID) (int64, error)
	FindByProvider(ctx context.Context, providerID uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error)
	CountByProvider(ctx context.Context, providerID uuid.UUID, status entity.BookingStatus) (int64, error)

	// Update writes the booking only while its stored status still equals
	// expectedStatus, otherwise ErrStaleStatus.
	Update(ctx context.Context, booking *entity.Booking, expectedStatus entity.BookingStatus) error
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, booking_reference, requester_id, service_id, provider_id, booking_date, time_slot,
	address, contact_person, special_instructions, requirements, base_price, additional_charges, discount,
	total_amount, payment_status, status, provider_notes, confirmed_at, completed_at, cancelled_by,
	cancellation_reason, cancellation_time, rating, review, rated_at, created_at, updated_at`

const uniqueViolation = "23505"

const providerBookingFilter = `provider_id = $1 AND ($2::text = '' OR status = $2)`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.RequesterID,
		&b.ServiceID,
		&b.ProviderID,
		&b.BookingDate,
		&b.TimeSlot,
		&b.Address,
		&b.ContactPerson,
		&b.SpecialInstructions,
		&b.Requirements,
		&b.BasePrice,
		&b.AdditionalCharges,
		&b.Discount,
		&b.TotalAmount,
		&b.PaymentStatus,
		&b.Status,
		&b.ProviderNotes,
		&b.ConfirmedAt,
		&b.CompletedAt,
		&b.CancelledBy,
		&b.CancellationReason,
		&b.CancellationTime,
		&b.Rating,
		&b.Review,
		&b.RatedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, booking_reference, requester_id, service_id, provider_id, booking_date,
		                      time_slot, address, contact_person, special_instructions, requirements,
		                      base_price, additional_charges, discount, total_amount, payment_status,
		                      status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.Reference,
		booking.RequesterID,
		booking.ServiceID,
		booking.ProviderID,
		booking.BookingDate,
		booking.TimeSlot,
		booking.Address,
		booking.ContactPerson,
		booking.SpecialInstructions,
		booking.Requirements,
		booking.BasePrice,
		booking.AdditionalCharges,
		booking.Discount,
		booking.TotalAmount,
		booking.PaymentStatus,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "bookings_booking_reference_key" {
		return ErrDuplicateReference
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_reference", booking.Reference),
			zap.String("requester_id", booking.RequesterID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.Reference, err)
	}

	return nil
}

func (r *bookingRepository) findOne(ctx context.Context, where string, arg any) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where

	booking, err := scanBooking(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking",
			zap.Error(err),
			zap.Any("key", arg),
		)
		return nil, fmt.Errorf("find booking %v: %w", arg, err)
	}
	return booking, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *bookingRepository) FindByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	return r.findOne(ctx, "booking_reference = $1", reference)
}

func (r *bookingRepository) findMany(ctx context.Context, op, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query bookings", zap.Error(err), zap.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	bookings := []*entity.Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

func (r *bookingRepository) FindByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE requester_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.findMany(ctx, "find bookings by requester", query, requesterID, limit, offset)
}

func (r *bookingRepository) CountByRequester(ctx context.Context, requesterID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE requester_id = $1`, requesterID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by requester",
			zap.Error(err),
			zap.String("requester_id", requesterID.String()),
		)
		return 0, fmt.Errorf("count bookings by requester %s: %w", requesterID, err)
	}
	return count, nil
}

func (r *bookingRepository) FindByProvider(ctx context.Context, providerID uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + providerBookingFilter + ` ORDER BY booking_date ASC LIMIT $3 OFFSET $4`
	return r.findMany(ctx, "find bookings by provider", query, providerID, string(status), limit, offset)
}

func (r *bookingRepository) CountByProvider(ctx context.Context, providerID uuid.UUID, status entity.BookingStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE `+providerBookingFilter, providerID, string(status)).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by provider",
			zap.Error(err),
			zap.String("provider_id", providerID.String()),
		)
		return 0, fmt.Errorf("count bookings by provider %s: %w", providerID, err)
	}
	return count, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking, expectedStatus entity.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $3, provider_notes = $4, confirmed_at = $5, completed_at = $6, cancelled_by = $7,
		    cancellation_reason = $8, cancellation_time = $9, rating = $10, review = $11, rated_at = $12,
		    payment_status = $13, updated_at = $14
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		expectedStatus,
		booking.Status,
		booking.ProviderNotes,
		booking.ConfirmedAt,
		booking.CompletedAt,
		booking.CancelledBy,
		booking.CancellationReason,
		booking.CancellationTime,
		booking.Rating,
		booking.Review,
		booking.RatedAt,
		booking.PaymentStatus,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("status", string(booking.Status)),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID, err)
	}

	if result.RowsAffected() == 0 {
		return ErrStaleStatus
	}

	return nil
}
