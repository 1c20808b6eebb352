// Package ratelimit holds the token buckets used for vendor quotas and for
// per-client limits on the public API.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket. Wait and Allow come from rate.Limiter.
type Limiter struct {
	*rate.Limiter
}

// New sizes a bucket from a per-minute quota, as vendors publish them. The
// burst is a tenth of the quota and at least one.
func New(perMinute int) *Limiter {
	return PerSecond(float64(perMinute)/60, max(perMinute/10, 1))
}

func PerSecond(rps float64, burst int) *Limiter {
	return &Limiter{rate.NewLimiter(rate.Limit(rps), burst)}
}

// KeyedLimiter keeps an independent bucket per key, such as an API key or a
// client address.
type KeyedLimiter struct {
	rps     float64
	burst   int
	buckets sync.Map
}

func NewKeyed(rps float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{rps: rps, burst: max(burst, 1)}
}

// Get returns the bucket for key, creating it on first use.
func (k *KeyedLimiter) Get(key string) *Limiter {
	if l, ok := k.buckets.Load(key); ok {
		return l.(*Limiter)
	}
	l, _ := k.buckets.LoadOrStore(key, PerSecond(k.rps, k.burst))
	return l.(*Limiter)
}

func (k *KeyedLimiter) Allow(key string) bool {
	return k.Get(key).Allow()
}
