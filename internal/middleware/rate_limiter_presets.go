package middleware

// StrictRateLimiter - For credential checks (login)
// Burst: 3 requests, Sustained: 1 request per 10 seconds
func StrictRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   3,
		RefillRate: 0.1, // 1 request per 10 seconds
	}
}
