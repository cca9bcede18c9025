package middleware

import (
	"fmt"
	"net/http"

	"github.com/benvon/corsgate/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const (
	// DefaultAdminRate applies when no admin rate is configured.
	DefaultAdminRate = "10-S"

	rateLimitKeyPrefix = "corsgate_ratelimit"
)

// NewRateLimitStore returns a Redis-backed limiter store shared across
// instances, or a process-local memory store when client is nil.
func NewRateLimitStore(client *redis.Client) (limiter.Store, error) {
	opts := limiter.StoreOptions{Prefix: rateLimitKeyPrefix}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	store, err := redisstore.NewStoreWithOptions(client, opts)
	if err != nil {
		return nil, fmt.Errorf("create redis rate limit store: %w", err)
	}
	return store, nil
}

// RateLimit returns ulule/limiter middleware keyed by client IP. rate uses
// the limiter format, e.g. "10-S" or "1000-H".
func RateLimit(store limiter.Store, rate string, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultAdminRate
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	instance := limiter.New(store, parsed)
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			respondErrorJSON(w, r, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded", logger)
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("rate_limiter_error", zap.Error(err))
			respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Rate limiter unavailable", logger)
		}),
	)
	return mw.Handler, nil
}
