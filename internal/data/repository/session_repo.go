package repository

import (
	"context"
	"errors"
	"fmt"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SessionRepository resolves session tokens issued by the identity service.
type SessionRepository interface {
	FindPrincipal(ctx context.Context, token string) (*entity.Principal, error)
}

type sessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSessionRepository(db database.PgxIface, log *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "session")),
	}
}

// FindPrincipal returns nil when the token is unknown, revoked, expired or
// belongs to an inactive user.
func (r *sessionRepository) FindPrincipal(ctx context.Context, token string) (*entity.Principal, error) {
	query := `
		SELECT u.id, u.role, u.is_verified
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > NOW()
		  AND u.is_active = true
		  AND u.deleted_at IS NULL
	`

	var principal entity.Principal
	err := r.db.QueryRow(ctx, query, token).Scan(
		&principal.ID,
		&principal.Role,
		&principal.Verified,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to resolve session", zap.Error(err))
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	return &principal, nil
}
