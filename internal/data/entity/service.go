package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ServiceStatus string

const (
	ServiceStatusActive   ServiceStatus = "active"
	ServiceStatusInactive ServiceStatus = "inactive"
)

// Service is a provider's fixed-price offering. IsAvailable, BookedBy and
// BookedAt form the availability gate a live booking holds.
type Service struct {
	Base
	ProviderID    uuid.UUID       `db:"provider_id"`
	Name          string          `db:"name"`
	Category      string          `db:"category"`
	Price         decimal.Decimal `db:"price"`
	Status        ServiceStatus   `db:"status"`
	IsAvailable   bool            `db:"is_available"`
	BookedBy      *uuid.UUID      `db:"booked_by"`
	BookedAt      *time.Time      `db:"booked_at"`
	BookingsCount int             `db:"bookings_count"`
}

func (s *Service) IsBookable() bool {
	return s.Status == ServiceStatusActive && s.IsAvailable
}
