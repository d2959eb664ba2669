package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeLimitStore struct {
	count     int64
	incrErr   error
	expireErr error
	expired   []string
	deleted   []string
}

func (s *fakeLimitStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	if s.incrErr != nil {
		return redis.NewIntResult(0, s.incrErr)
	}
	s.count++
	return redis.NewIntResult(s.count, nil)
}

func (s *fakeLimitStore) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if s.expireErr != nil {
		return redis.NewBoolResult(false, s.expireErr)
	}
	s.expired = append(s.expired, key)
	return redis.NewBoolResult(true, nil)
}

func (s *fakeLimitStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	s.deleted = append(s.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func newLimitedRouter(store *fakeLimitStore, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(store, limit, time.Minute, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func limitedGet(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	store := &fakeLimitStore{}
	r := newLimitedRouter(store, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, limitedGet(r).Code)
	}
	// The window TTL is set exactly once, on the first hit.
	assert.Len(t, store.expired, 1)
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	store := &fakeLimitStore{}
	r := newLimitedRouter(store, 2)

	limitedGet(r)
	limitedGet(r)
	w := limitedGet(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"detail":"Too many requests"}`, w.Body.String())
}

func TestRateLimitFailsOpenOnIncrError(t *testing.T) {
	store := &fakeLimitStore{incrErr: errors.New("connection refused")}
	r := newLimitedRouter(store, 1)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, limitedGet(r).Code)
	}
}

func TestRateLimitFailsOpenOnExpireError(t *testing.T) {
	// If the TTL cannot be set the counter would never reset. The limiter
	// must drop the key and let the request through rather than throttle
	// the client forever.
	store := &fakeLimitStore{expireErr: errors.New("connection refused")}
	r := newLimitedRouter(store, 1)

	assert.Equal(t, http.StatusOK, limitedGet(r).Code)
	assert.Len(t, store.deleted, 1)
}
