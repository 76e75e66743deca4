package usecase

import (
	"context"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/internal/data/repository"
	"waste-marketplace/internal/dto/response"
	"waste-marketplace/pkg/apperror"

	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, p entity.Principal) (*response.UserResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log.With(zap.String("service", "user")),
	}
}

// GetProfile returns the caller's own account, including the capabilities derived from the role.
func (us *userService) GetProfile(ctx context.Context, p entity.Principal) (*response.UserResponse, error) {
	user, err := us.userRepo.FindByID(ctx, p.ID)
	if err != nil {
		us.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", p.ID.String()))
		return nil, apperror.Internal("failed to get profile", err)
	}
	if user == nil {
		return nil, apperror.NotFoundWithID("user", p.ID.String())
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}
