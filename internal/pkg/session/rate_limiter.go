// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client *redis.Client
}

var _ LoginLimiter = (*RateLimiter)(nil)

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckLoginAttempt allows up to MaxLoginAttempts per LoginAttemptWindow.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip string) (bool, int64, error) {
	key := loginKey(ip)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment login attempt: %w", err)
	}

	// Set expiration on first attempt
	if count == 1 {
		r.client.Expire(ctx, key, LoginAttemptWindow)
	}

	return count <= MaxLoginAttempts, remaining(count), nil
}

func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip string) error {
	return r.client.Del(ctx, loginKey(ip)).Err()
}

// MemoryRateLimiter is the in-process counterpart of RateLimiter.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*window
	now      func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

var _ LoginLimiter = (*MemoryRateLimiter)(nil)

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{attempts: make(map[string]*window), now: time.Now}
}

func (r *MemoryRateLimiter) CheckLoginAttempt(_ context.Context, ip string) (bool, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.attempts[ip]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(LoginAttemptWindow)}
		r.attempts[ip] = w
	}
	w.count++
	return w.count <= MaxLoginAttempts, remaining(w.count), nil
}

func (r *MemoryRateLimiter) ResetLoginAttempts(_ context.Context, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, ip)
	return nil
}

func remaining(count int64) int64 {
	left := MaxLoginAttempts - count
	if left < 0 {
		return 0
	}
	return left
}

func loginKey(ip string) string {
	return fmt.Sprintf("cards:ratelimit:login:%s", ip)
}
