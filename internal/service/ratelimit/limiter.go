package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per client key.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*entry
	rps   rate.Limit
	burst int
	idle  time.Duration
}

// New builds a limiter refilling rps tokens per second up to burst.
// Buckets untouched for ten minutes are dropped on the next sweep.
func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{m: make(map[string]*entry), rps: rate.Limit(rps), burst: burst, idle: 10 * time.Minute}
}

// Allow reports whether key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = e
		if len(l.m)%256 == 0 {
			l.sweepLocked(now)
		}
	}
	e.seen = now
	l.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for k, e := range l.m {
		if now.Sub(e.seen) > l.idle {
			delete(l.m, k)
		}
	}
}

// Middleware rejects requests over the per-IP budget with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
