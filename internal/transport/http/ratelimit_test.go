package http

import (
	"testing"
	"time"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	r := newRateLimiter(2, 50*time.Millisecond)

	if !r.allow() || !r.allow() {
		t.Fatal("expected first two attempts allowed")
	}
	if r.allow() {
		t.Fatal("expected third attempt rejected")
	}

	time.Sleep(60 * time.Millisecond)
	if !r.allow() {
		t.Error("expected a fresh window after reset")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !r.allow() {
			t.Fatal("expected zero limit to disable the limiter")
		}
	}

	var nilLimiter *rateLimiter
	if !nilLimiter.allow() {
		t.Error("expected nil limiter to allow")
	}
}
