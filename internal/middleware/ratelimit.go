package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/octobees/localpros/api/internal/config"
)

// RateLimiter applies a token bucket per client IP. A zero config disables it.
func RateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	// idle clients are forgotten once their bucket would be full again
	limiters := cache.New(cfg.Interval, 2*cfg.Interval)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := clientLimiter(limiters, c.RealIP(), perRequest, cfg.Requests)
			if !limiter.Allow() {
				c.Response().Header().Set("Retry-After", retryAfter(perRequest))
				return deny(c, http.StatusTooManyRequests, "rate_limited", "Too Many Requests", "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func clientLimiter(limiters *cache.Cache, ip string, every time.Duration, burst int) *rate.Limiter {
	if v, ok := limiters.Get(ip); ok {
		limiters.Set(ip, v, cache.DefaultExpiration)
		return v.(*rate.Limiter)
	}
	fresh := rate.NewLimiter(rate.Every(every), burst)
	if err := limiters.Add(ip, fresh, cache.DefaultExpiration); err != nil {
		// another request for ip won the race
		if v, ok := limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return fresh
}

func retryAfter(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
