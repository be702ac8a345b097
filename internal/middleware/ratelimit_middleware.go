package middleware

import (
	"sync"
	"time"
)

// InvalidAuthRateLimiter counts failed authentication attempts per IP in a
// fixed window. It is only consulted on failures.
type InvalidAuthRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	limit    int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

// NewInvalidAuthRateLimiter allows limit failures per window per IP.
func NewInvalidAuthRateLimiter(limit int, window time.Duration) *InvalidAuthRateLimiter {
	rl := &InvalidAuthRateLimiter{
		attempts: make(map[string]*attemptInfo),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow records a failed attempt and reports whether the IP is still under the limit.
func (r *InvalidAuthRateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, exists := r.attempts[ip]
	if !exists || now.Sub(info.firstAt) > r.window {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return true
	}

	if info.count >= r.limit {
		return false
	}
	info.count++
	return true
}

// Close stops the background cleanup.
func (r *InvalidAuthRateLimiter) Close() {
	r.once.Do(func() { close(r.stop) })
}

func (r *InvalidAuthRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * r.window)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for ip, info := range r.attempts {
				if now.Sub(info.firstAt) > r.window {
					delete(r.attempts, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}
