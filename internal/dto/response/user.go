package response

import (
	"time"

	"waste-marketplace/internal/data/entity"
)

type UserResponse struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	Phone      *string         `json:"phone,omitempty"`
	Role       entity.UserRole `json:"role"`
	IsVerified bool            `json:"is_verified"`
	CanOffer   bool            `json:"can_offer"`
	CreatedAt  time.Time       `json:"created_at"`
}

func UserToResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:         user.ID.String(),
		Username:   user.Username,
		Email:      user.Email,
		Phone:      user.Phone,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		CanOffer:   user.Role.CanOffer(),
		CreatedAt:  user.CreatedAt,
	}
}
