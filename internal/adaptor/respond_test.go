package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/apperror"
	"waste-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperror.Validation("bad input", map[string]any{"quantity_kg": "gt"}), http.StatusBadRequest, ""},
		{"not found", apperror.NotFoundWithID("listing", "x"), http.StatusNotFound, ""},
		{"forbidden", apperror.Forbidden("owner only"), http.StatusForbidden, ""},
		{"invalid state", apperror.InvalidTransition("booking", entity.BookingStatusCompleted, entity.BookingStatusScheduled), http.StatusConflict, "INVALID_STATE"},
		{"conflict", apperror.Conflict("service is not available"), http.StatusConflict, "CONFLICT"},
		{"plain error", errors.New("db down"), http.StatusInternalServerError, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(zap.NewNop(), rec, tc.err, "test")

			assert.Equal(t, tc.status, rec.Code)

			var body utils.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Status)
			if tc.code != "" {
				errs, ok := body.Errors.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, tc.code, errs["code"])
			}
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Message, "db down")
			}
		})
	}
}

func TestPrincipalFrom(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := principalFrom(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	want := entity.Principal{ID: uuid.New(), Role: entity.RoleProvider}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(utils.SetPrincipalContext(req.Context(), want))
	got, ok := principalFrom(httptest.NewRecorder(), req)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestPageFromQuery(t *testing.T) {
	page := pageFromQuery(httptest.NewRequest(http.MethodGet, "/api/listings?page=3&per_page=25", nil))
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 25, page.PerPage)

	page = pageFromQuery(httptest.NewRequest(http.MethodGet, "/api/listings?page=abc", nil))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)
}
