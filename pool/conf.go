package pool

import "golang.org/x/time/rate"

// Option is a functional option for configuring a Pool.
type Option func(*config)

type config struct {
	limiter *rate.Limiter
}

func newConfig(opts ...Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithRateLimit throttles task admission in addition to the capacity bound.
// tasksPerSecond specifies the maximum spawn rate and burst the number of
// spawns allowed to proceed back-to-back. Useful for pools that front
// external services or APIs. If not specified, no rate limiting is applied.
//
// Example:
//
//	p, _ := pool.New(10, pool.WithRateLimit(5.0, 2)) // 5 spawns/sec, burst of 2
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.limiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithRateLimiter installs a caller-supplied limiter, for sharing one
// limiter across several pools.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(cfg *config) {
		cfg.limiter = l
	}
}
