package ratelimit

import (
	"net/http"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewQuoteLimiter builds a Redis-backed rate limiting middleware for the
// quote endpoint. The rate uses limiter's formatted notation, e.g. "120-M".
func NewQuoteLimiter(rdb *redis.Client, formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "ratelimit:quote",
	})
	if err != nil {
		return nil, err
	}
	mw := stdlibmw.NewMiddleware(limiter.New(store, rate))
	return func(next http.Handler) http.Handler {
		return mw.Handler(next)
	}, nil
}
