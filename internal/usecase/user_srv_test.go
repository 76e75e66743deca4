package usecase

import (
	"context"
	"testing"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_GetProfile(t *testing.T) {
	users := newFakeUsers()
	svc := NewUserService(users, zap.NewNop())
	ctx := context.Background()

	provider := users.add(entity.RoleProvider, "green-co")
	profile, err := svc.GetProfile(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, "green-co", profile.Username)
	assert.True(t, profile.CanOffer)

	owner := users.add(entity.RoleUser, "sari")
	profile, err = svc.GetProfile(ctx, owner)
	require.NoError(t, err)
	assert.False(t, profile.CanOffer)

	_, err = svc.GetProfile(ctx, entity.Principal{ID: uuid.New(), Role: entity.RoleUser})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
