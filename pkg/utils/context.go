package utils

import (
	"context"

	"waste-marketplace/internal/data/entity"

	"github.com/google/uuid"
)

type contextKey string

const (
	PrincipalKey contextKey = "principal"
	TokenKey     contextKey = "token"
)

func SetPrincipalContext(ctx context.Context, principal entity.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

func GetPrincipalFromContext(ctx context.Context) (entity.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(entity.Principal)
	if !ok || principal.ID == uuid.Nil {
		return entity.Principal{}, false
	}
	return principal, true
}

// GetTokenFromContext returns the session token the request authenticated with
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

func SetTokenContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}
