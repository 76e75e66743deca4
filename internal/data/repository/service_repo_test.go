package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	claimSQL    = `UPDATE services SET is_available = false, .* WHERE id = \$1 AND status = 'active' AND is_available = true AND deleted_at IS NULL`
	rollbackSQL = `UPDATE services SET is_available = true, .* WHERE id = \$1 AND booked_by = \$2 AND is_available = false`
	releaseSQL  = `UPDATE services SET is_available = true, .* WHERE id = \$1 AND deleted_at IS NULL`
)

func TestServiceRepository_Claim(t *testing.T) {
	id, claimant := uuid.New(), uuid.New()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"available", 1, true},
		{"already taken", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := newMockDB(t)
			db.ExpectExec(claimSQL).WithArgs(id, claimant, at).
				WillReturnResult(pgxmock.NewResult("UPDATE", tc.affected))

			claimed, err := NewServiceRepository(db, zap.NewNop()).Claim(context.Background(), id, claimant, at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, claimed)
		})
	}
}

func TestServiceRepository_RollbackClaimOnlyUndoesOwnClaim(t *testing.T) {
	id, claimant := uuid.New(), uuid.New()

	db := newMockDB(t)
	db.ExpectExec(rollbackSQL).WithArgs(id, claimant).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, NewServiceRepository(db, zap.NewNop()).RollbackClaim(context.Background(), id, claimant))
}

func TestServiceRepository_ReleaseMissingService(t *testing.T) {
	id := uuid.New()

	db := newMockDB(t)
	db.ExpectExec(releaseSQL).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, NewServiceRepository(db, zap.NewNop()).Release(context.Background(), id), ErrNotFound)
}

func TestServiceRepository_FindActiveAvailableFilters(t *testing.T) {
	id := uuid.New()

	db := newMockDB(t)
	db.ExpectQuery(`FROM services WHERE id = \$1 AND deleted_at IS NULL AND status = 'active' AND is_available = true`).
		WithArgs(id).
		WillReturnRows(db.NewRows([]string{"id"}))

	service, err := NewServiceRepository(db, zap.NewNop()).FindActiveAvailable(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, service)
}
