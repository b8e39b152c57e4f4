package api

import (
	"testing"
	"time"
)

func TestAttemptLimiterWindowAndClear(t *testing.T) {
	t.Parallel()

	limiter := newAttemptLimiter(2, time.Hour)
	key := "127.0.0.1|dietitian@example.com"
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	limiter.fail(key, now.Add(-2*time.Hour))
	limiter.fail(key, now.Add(-90*time.Minute))
	if limiter.blocked(key, now) {
		t.Fatal("expected attempts outside the window to be pruned")
	}

	limiter.fail(key, now.Add(-30*time.Minute))
	limiter.fail(key, now.Add(-10*time.Minute))
	if !limiter.blocked(key, now) {
		t.Fatal("expected two recent failures to reach limit 2")
	}
	if limiter.blocked("127.0.0.1|other@example.com", now) {
		t.Fatal("expected other emails to be unaffected")
	}

	limiter.clear(key)
	if limiter.blocked(key, now) {
		t.Fatal("expected no failures after clear")
	}
}
