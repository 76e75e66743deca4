package entity

import "github.com/google/uuid"

type UserRole string

const (
	RoleUser     UserRole = "user"
	RoleExpert   UserRole = "expert"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleExpert, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// CanOffer reports whether the role may bid on waste listings.
func (r UserRole) CanOffer() bool {
	return r == RoleProvider || r == RoleExpert || r == RoleAdmin
}

type User struct {
	Base
	Username   string   `db:"username"`
	Email      string   `db:"email"`
	Phone      *string  `db:"phone"`
	Role       UserRole `db:"role"`
	IsVerified bool     `db:"is_verified"`
	IsActive   bool     `db:"is_active"`
}

// Principal is the authenticated caller handed to every engine operation.
type Principal struct {
	ID       uuid.UUID
	Role     UserRole
	Verified bool
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
