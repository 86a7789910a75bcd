package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/taskforge/internal/api/response"
	"github.com/kiranshivaraju/taskforge/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
)

// KeyFunc picks the subject a request is counted against. ok is false when
// the request has no subject and should pass unlimited.
type KeyFunc func(r *http.Request) (subject string, ok bool)

// ByUser counts authenticated requests per user.
func ByUser(r *http.Request) (string, bool) {
	claims, ok := ClaimsFrom(r)
	if !ok {
		return "", false
	}
	return claims.UserID.String(), true
}

// ByClientIP counts per remote address. Mount behind chi's RealIP so
// proxied clients are told apart.
func ByClientIP(r *http.Request) (string, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host, host != ""
}

// RateLimit is a fixed one-minute window counter in Redis.
type RateLimit struct {
	cache          cache.Cache
	bucket         string
	requestsPerMin int
	key            KeyFunc
	now            func() time.Time
}

// NewRateLimit creates a limiter counting requests in bucket per subject.
func NewRateLimit(c cache.Cache, bucket string, requestsPerMin int, key KeyFunc) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, bucket: bucket, requestsPerMin: requestsPerMin, key: key, now: time.Now}
}

// Limit applies rate limiting. Redis failures let the request through.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := rl.key(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		windowStart := now.Truncate(rateWindow)
		reset := windowStart.Add(rateWindow)
		key := cache.RateLimitKey(rl.bucket, subject+":"+strconv.FormatInt(windowStart.Unix(), 10))

		count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateWindow)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(rl.requestsPerMin) {
			retry := int(reset.Sub(now).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
