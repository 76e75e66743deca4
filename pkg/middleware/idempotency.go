package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"waste-marketplace/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore keeps the first successful response per key. Reserve marks
// a key as in flight until Release or the reservation TTL, so only one request
// per key reaches the handler at a time.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	Set(ctx context.Context, key string, response *CachedResponse) error
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// reservationTTL bounds how long a crashed request can hold its key.
const reservationTTL = time.Minute

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu       sync.RWMutex
	store    map[string]*CachedResponse
	inflight map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		store:    make(map[string]*CachedResponse),
		inflight: make(map[string]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.RLock()
	response, exists := s.store[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if s.now().Sub(response.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	return response, true, nil
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.store[key]; ok && s.now().Sub(existing.CreatedAt) <= s.ttl {
		return nil
	}
	response.CreatedAt = s.now()
	s.store[key] = response
	return nil
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if since, ok := s.inflight[key]; ok && now.Sub(since) <= reservationTTL {
		return false, nil
	}
	s.inflight[key] = now
	return true, nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
	return nil
}

type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl, prefix: "idempotency:"}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, err
	}
	return &cached, true, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) error {
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		return err
	}
	// the first stored response wins
	return s.client.SetNX(ctx, s.prefix+key, raw, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+"inflight:"+key, 1, reservationTTL).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+"inflight:"+key).Err()
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a caller retries a request with
// the same Idempotency-Key. Keys are scoped to the caller, so it must run after AuthSession.
// A second request arriving while the first is still running gets 409.
// Store failures fall through to the handler.
func Idempotency(store IdempotencyStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			scope := "anonymous"
			if principal, ok := utils.GetPrincipalFromContext(r.Context()); ok {
				scope = principal.ID.String()
			}
			key = scope + ":" + r.Method + ":" + r.URL.Path + ":" + key

			cached, found, err := store.Get(r.Context(), key)
			if err != nil {
				logger.Warn("Idempotency lookup failed", zap.Error(err))
			}
			if found {
				replayCachedResponse(w, cached)
				return
			}

			reserved, err := store.Reserve(r.Context(), key)
			if err != nil {
				logger.Warn("Idempotency reservation failed", zap.Error(err))
			} else if !reserved {
				// the holder may have finished since the lookup
				if cached, found, _ := store.Get(r.Context(), key); found {
					replayCachedResponse(w, cached)
					return
				}
				utils.ResponseConflict(w, "A request with this Idempotency-Key is still in progress", nil)
				return
			}
			if reserved {
				defer func() {
					if err := store.Release(context.WithoutCancel(r.Context()), key); err != nil {
						logger.Warn("Failed to release idempotency key", zap.Error(err))
					}
				}()
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(capture, r)

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				return
			}
			err = store.Set(context.WithoutCancel(r.Context()), key, &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			})
			if err != nil {
				logger.Warn("Failed to store idempotent response", zap.Error(err))
			}
		})
	}
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
