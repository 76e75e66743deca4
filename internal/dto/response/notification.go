package response

import (
	"time"

	"waste-marketplace/internal/data/entity"
)

type NotificationResponse struct {
	ID        string                  `json:"id"`
	Kind      entity.NotificationKind `json:"kind"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Payload   map[string]any          `json:"payload,omitempty"`
	IsRead    bool                    `json:"is_read"`
	ReadAt    *time.Time              `json:"read_at,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

type MarkedReadResponse struct {
	Updated int64 `json:"updated"`
}

func NotificationToResponse(n *entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		Payload:   n.Payload,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
