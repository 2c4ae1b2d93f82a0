package messenger

import (
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{Enabled: true, MessagesPerMinute: 60, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if !rl.Allow("psid-1") {
			t.Fatalf("message %d should be allowed within burst", i+1)
		}
	}
	if rl.Allow("psid-1") {
		t.Error("message beyond burst should be limited")
	}
	if !rl.Allow("psid-2") {
		t.Error("other senders have their own bucket")
	}
	if rl.Len() != 2 {
		t.Errorf("Len = %d, want 2", rl.Len())
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{Enabled: false, MessagesPerMinute: 1, BurstSize: 1})
	for i := 0; i < 10; i++ {
		if !rl.Allow("psid-1") {
			t.Fatal("disabled limiter must allow everything")
		}
	}

	var nilLimiter *RateLimiter
	if !nilLimiter.Allow("psid-1") {
		t.Error("nil limiter must allow everything")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(nil)
	rl.Allow("psid-1")
	rl.Allow("psid-2")

	if n := rl.Cleanup(time.Hour); n != 0 {
		t.Errorf("Cleanup removed %d fresh limiters", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := rl.Cleanup(time.Millisecond); n != 2 {
		t.Errorf("Cleanup removed %d, want 2", n)
	}
	if rl.Len() != 0 {
		t.Errorf("Len = %d after cleanup", rl.Len())
	}
}
