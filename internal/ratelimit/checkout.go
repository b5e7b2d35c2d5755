package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/mewayz/billing/internal/config"
)

const (
	keyCheckoutCustomer = "checkout:customer:%s"
	keyCheckoutIP       = "checkout:ip:%s"
	keyCheckoutLock     = "checkout:lock:%s"
)

// CheckoutLimiter throttles checkout submissions per customer and per source
// IP, and holds a short lock per session so only one attempt runs at a time.
// A nil limiter is valid and allows everything.
type CheckoutLimiter struct {
	enabled bool

	bucket *TokenBucket
	lock   *Lock

	customerRate  float64
	customerBurst int
	ipRate        float64
	ipBurst       int
	lockTTL       time.Duration
}

func NewCheckoutLimiter(cfg config.Config) (*CheckoutLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.CheckoutCustomerRate <= 0 || limitCfg.CheckoutCustomerBurst <= 0 {
		return nil, errors.New("checkout customer rate limit must be positive")
	}
	if limitCfg.CheckoutIPRate <= 0 || limitCfg.CheckoutIPBurst <= 0 {
		return nil, errors.New("checkout ip rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &CheckoutLimiter{
		enabled:       true,
		bucket:        NewTokenBucket(client),
		lock:          NewLock(client),
		customerRate:  limitCfg.CheckoutCustomerRate,
		customerBurst: limitCfg.CheckoutCustomerBurst,
		ipRate:        limitCfg.CheckoutIPRate,
		ipBurst:       limitCfg.CheckoutIPBurst,
		lockTTL:       time.Duration(limitCfg.InFlightTTLSeconds) * time.Second,
	}, nil
}

func (l *CheckoutLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *CheckoutLimiter) AllowCustomer(ctx context.Context, email string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutCustomer, strings.ToLower(strings.TrimSpace(email))), l.customerRate, l.customerBurst)
}

func (l *CheckoutLimiter) AllowIP(ctx context.Context, ip string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutIP, strings.TrimSpace(ip)), l.ipRate, l.ipBurst)
}

func (l *CheckoutLimiter) TryLockSession(ctx context.Context, sessionID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lock.Acquire(ctx, fmt.Sprintf(keyCheckoutLock, strings.TrimSpace(sessionID)), l.lockTTL)
}

func (l *CheckoutLimiter) ReleaseSession(ctx context.Context, sessionID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.lock.Release(ctx, fmt.Sprintf(keyCheckoutLock, strings.TrimSpace(sessionID)), token)
}
