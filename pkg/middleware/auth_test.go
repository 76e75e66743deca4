package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSessions struct {
	principals map[string]entity.Principal
	err        error
}

func (f *fakeSessions) FindPrincipal(_ context.Context, token string) (*entity.Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.principals[token]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// echoPrincipal writes 200 and records what the middleware put in the context.
func echoPrincipal(seen *entity.Principal, token *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = utils.GetPrincipalFromContext(r.Context())
		*token, _ = utils.GetTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthSession(t *testing.T) {
	provider := entity.Principal{ID: uuid.New(), Role: entity.RoleProvider, Verified: true}
	sessions := &fakeSessions{principals: map[string]entity.Principal{"good-token": provider}}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized},
		{"no token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good-token", http.StatusOK},
		{"scheme is case insensitive", "bearer good-token", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen entity.Principal
			var token string
			h := AuthSession(sessions, zap.NewNop())(echoPrincipal(&seen, &token))

			req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, provider, seen)
				assert.Equal(t, "good-token", token)
			}
		})
	}
}

func TestAuthSession_StoreFailure(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("db down")}
	called := false
	h := AuthSession(sessions, zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, called)
}

func TestRequireRoles(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireRoles(zap.NewNop(), entity.RoleProvider, entity.RoleAdmin)(ok)

	serve := func(ctx context.Context) int {
		req := httptest.NewRequest(http.MethodGet, "/api/provider/bookings", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(context.Background()))

	for role, want := range map[entity.UserRole]int{
		entity.RoleUser:     http.StatusForbidden,
		entity.RoleProvider: http.StatusOK,
		entity.RoleAdmin:    http.StatusOK,
	} {
		ctx := utils.SetPrincipalContext(context.Background(), entity.Principal{ID: uuid.New(), Role: role})
		require.Equal(t, want, serve(ctx), "role %s", role)
	}
}
