package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// RateLimitKey namespaces a limiter bucket, e.g. RateLimitKey("login", ip).
func RateLimitKey(bucket, subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", bucket, subject)
}

func RevokedSessionKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:revoked:%s", sessionID)
}
