package ratelimit

import "github.com/tableturn/forecaster/common/config"

// Limits are the write-route quotas enforced by the API
type Limits struct {
	Global        int64 // requests per window across all users
	PerUser       int64 // requests per window per user
	WindowSeconds int
}

// DefaultLimits apply when configuration leaves a value unset
var DefaultLimits = Limits{
	Global:        1000,
	PerUser:       100,
	WindowSeconds: 60,
}

// LimitsFromConfig fills Limits from service configuration, falling back to defaults
func LimitsFromConfig(cfg config.RateLimitConfig) Limits {
	l := DefaultLimits
	if cfg.GlobalLimit > 0 {
		l.Global = int64(cfg.GlobalLimit)
	}
	if cfg.UserLimit > 0 {
		l.PerUser = int64(cfg.UserLimit)
	}
	if cfg.WindowSeconds > 0 {
		l.WindowSeconds = cfg.WindowSeconds
	}
	return l
}
