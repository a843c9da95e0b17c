package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_BurstThenThrottle(t *testing.T) {
	l := New(60) // 1 rps, burst 6

	for i := 0; i < 6; i++ {
		if !l.Allow() {
			t.Fatalf("request %d should be inside the burst", i)
		}
	}
	if l.Allow() {
		t.Fatal("request past the burst should be throttled")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New(1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected wait to fail once the deadline is shorter than the refill")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New(0)
	for i := 0; i < 1000; i++ {
		if !l.Allow() {
			t.Fatalf("unlimited limiter refused request %d", i)
		}
	}

	l.SetRate(60)
	for i := 0; i < 6; i++ {
		l.Allow()
	}
	if l.Allow() {
		t.Fatal("expected throttling after SetRate")
	}
}
