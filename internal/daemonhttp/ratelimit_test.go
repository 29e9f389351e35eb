package daemonhttp

import "testing"

func TestIPRateLimiterTracksIndependentBuckets(t *testing.T) {
	rl := NewRateLimiter(60, 1)

	if !rl.Allow("1.2.3.4") {
		t.Fatal("expected the first request from a fresh IP to be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("expected the second immediate request to exceed the burst of 1")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("expected a different IP to have its own untouched bucket")
	}
}
