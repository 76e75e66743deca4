package entity

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationBookingRequest  NotificationKind = "booking_request"
	NotificationBookingStatus   NotificationKind = "booking_status"
	NotificationSellWasteOffer  NotificationKind = "sell_waste_offer"
	NotificationSellWasteStatus NotificationKind = "sell_waste_status"
	NotificationSystemMessage   NotificationKind = "system_message"
)

type Notification struct {
	BaseSimple
	RecipientID uuid.UUID        `db:"recipient_id"`
	Kind        NotificationKind `db:"kind"`
	Title       string           `db:"title"`
	Message     string           `db:"message"`
	Payload     map[string]any   `db:"payload"`
	IsRead      bool             `db:"is_read"`
	ReadAt      *time.Time       `db:"read_at"`
}
