package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"waste-marketplace/internal/data/entity"
	"waste-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func countingHandler(status int, calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"call":%d}`, n)
	})
}

func idempotentRequest(p entity.Principal, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/listings", nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req.WithContext(utils.SetPrincipalContext(req.Context(), p))
}

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	var calls int32
	h := Idempotency(NewInMemoryIdempotencyStore(time.Hour), zap.NewNop())(countingHandler(http.StatusCreated, &calls))
	caller := entity.Principal{ID: uuid.New(), Role: entity.RoleUser}

	first := httptest.NewRecorder()
	h.ServeHTTP(first, idempotentRequest(caller, "abc"))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, idempotentRequest(caller, "abc"))

	assert.EqualValues(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))
}

func TestIdempotency_KeysAreScopedPerCaller(t *testing.T) {
	var calls int32
	h := Idempotency(NewInMemoryIdempotencyStore(time.Hour), zap.NewNop())(countingHandler(http.StatusCreated, &calls))

	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(entity.Principal{ID: uuid.New()}, "abc"))
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(entity.Principal{ID: uuid.New()}, "abc"))

	assert.EqualValues(t, 2, calls)
}

func TestIdempotency_SkipsFailuresAndMissingKey(t *testing.T) {
	caller := entity.Principal{ID: uuid.New()}

	var failing int32
	h := Idempotency(NewInMemoryIdempotencyStore(time.Hour), zap.NewNop())(countingHandler(http.StatusConflict, &failing))
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(caller, "abc"))
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(caller, "abc"))
	assert.EqualValues(t, 2, failing, "non-2xx responses are not cached")

	var unkeyed int32
	h = Idempotency(NewInMemoryIdempotencyStore(time.Hour), zap.NewNop())(countingHandler(http.StatusCreated, &unkeyed))
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(caller, ""))
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(caller, ""))
	assert.EqualValues(t, 2, unkeyed)
}

func TestIdempotency_ConcurrentDuplicateIsRejected(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	unblock := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-unblock
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"first"}`)
	})
	h := Idempotency(NewInMemoryIdempotencyStore(time.Hour), zap.NewNop())(slow)
	caller := entity.Principal{ID: uuid.New(), Role: entity.RoleUser}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(caller, "abc"))
	}()
	<-started

	dup := httptest.NewRecorder()
	h.ServeHTTP(dup, idempotentRequest(caller, "abc"))
	assert.Equal(t, http.StatusConflict, dup.Code)

	close(unblock)
	<-done

	retry := httptest.NewRecorder()
	h.ServeHTTP(retry, idempotentRequest(caller, "abc"))
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, `{"id":"first"}`, retry.Body.String())
	assert.EqualValues(t, 1, calls)
}

func TestInMemoryIdempotencyStore_Reservation(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := NewInMemoryIdempotencyStore(time.Hour)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = store.Reserve(ctx, "k")
	assert.False(t, ok, "held key")

	require.NoError(t, store.Release(ctx, "k"))
	ok, _ = store.Reserve(ctx, "k")
	assert.True(t, ok, "released key")

	now = now.Add(2 * reservationTTL)
	ok, _ = store.Reserve(ctx, "k")
	assert.True(t, ok, "abandoned reservation expires")
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := NewInMemoryIdempotencyStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", &CachedResponse{StatusCode: http.StatusCreated, Body: []byte("first")}))
	require.NoError(t, store.Set(ctx, "k", &CachedResponse{StatusCode: http.StatusCreated, Body: []byte("second")}))

	cached, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", string(cached.Body))

	now = now.Add(2 * time.Minute)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
