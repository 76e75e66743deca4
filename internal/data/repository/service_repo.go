package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ServiceRepository exposes the catalog lookup and the availability gate.
// Claim and RollbackClaim are single conditional updates, so only one caller
// can hold a service at a time.
type ServiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error)
	FindActiveAvailable(ctx context.Context, id uuid.UUID) (*entity.Service, error)
	Claim(ctx context.Context, id, claimant uuid.UUID, at time.Time) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
	RollbackClaim(ctx context.Context, id, claimant uuid.UUID) error
}

type serviceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewServiceRepository(db database.PgxIface, log *zap.Logger) ServiceRepository {
	return &serviceRepository{
		db:  db,
		log: log.With(zap.String("repository", "service")),
	}
}

func (r *serviceRepository) find(ctx context.Context, where string, id uuid.UUID) (*entity.Service, error) {
	query := `
		SELECT id, provider_id, name, category, price, status, is_available, booked_by, booked_at,
		       bookings_count, created_at, updated_at, deleted_at
		FROM services
		WHERE id = $1 AND deleted_at IS NULL ` + where

	var s entity.Service
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.ProviderID,
		&s.Name,
		&s.Category,
		&s.Price,
		&s.Status,
		&s.IsAvailable,
		&s.BookedBy,
		&s.BookedAt,
		&s.BookingsCount,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.DeletedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return nil, fmt.Errorf("find service %s: %w", id, err)
	}

	return &s, nil
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	return r.find(ctx, "", id)
}

func (r *serviceRepository) FindActiveAvailable(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	return r.find(ctx, "AND status = 'active' AND is_available = true", id)
}

func (r *serviceRepository) Claim(ctx context.Context, id, claimant uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE services
		SET is_available = false, booked_by = $2, booked_at = $3,
		    bookings_count = bookings_count + 1, updated_at = $3
		WHERE id = $1 AND status = 'active' AND is_available = true AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, id, claimant, at)
	if err != nil {
		r.log.Error("Failed to claim service",
			zap.Error(err),
			zap.String("service_id", id.String()),
			zap.String("claimant", claimant.String()),
		)
		return false, fmt.Errorf("claim service %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *serviceRepository) Release(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE services
		SET is_available = true, booked_by = NULL, booked_at = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to release service",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return fmt.Errorf("release service %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("release service %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *serviceRepository) RollbackClaim(ctx context.Context, id, claimant uuid.UUID) error {
	query := `
		UPDATE services
		SET is_available = true, booked_by = NULL, booked_at = NULL,
		    bookings_count = GREATEST(bookings_count - 1, 0), updated_at = NOW()
		WHERE id = $1 AND booked_by = $2 AND is_available = false
	`

	result, err := r.db.Exec(ctx, query, id, claimant)
	if err != nil {
		r.log.Error("Failed to roll back service claim",
			zap.Error(err),
			zap.String("service_id", id.String()),
			zap.String("claimant", claimant.String()),
		)
		return fmt.Errorf("roll back claim on service %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		r.log.Warn("Service claim already gone on rollback",
			zap.String("service_id", id.String()),
			zap.String("claimant", claimant.String()),
		)
	}

	return nil
}
