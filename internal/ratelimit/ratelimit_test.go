package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNew_BurstIsTenPercent(t *testing.T) {
	l := New(600)
	allowed := 0
	for i := 0; i < 100; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 60 {
		t.Errorf("allowed = %d, want burst of 60", allowed)
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := PerSecond(0.001, 1)
	if !l.Allow() {
		t.Fatal("first token should be available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("expected Wait to fail once the deadline cannot be met")
	}
}

func TestKeyedLimiter_IsolatesKeys(t *testing.T) {
	k := NewKeyed(0.001, 1)

	if !k.Allow("merchant-a") {
		t.Fatal("merchant-a first call rejected")
	}
	if k.Allow("merchant-a") {
		t.Error("merchant-a second call should be limited")
	}
	if !k.Allow("merchant-b") {
		t.Error("merchant-b must have its own budget")
	}
	if k.Get("merchant-a") != k.Get("merchant-a") {
		t.Error("Get must return the same limiter per key")
	}
}
