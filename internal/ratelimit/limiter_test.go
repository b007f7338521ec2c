package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter(10, 20)
	defer limiter.Stop()

	if limiter.clients == nil {
		t.Error("clients map is nil")
	}
	if limiter.cleanup == nil {
		t.Error("cleanup ticker is nil")
	}
	if limiter.Tracked() != 0 {
		t.Errorf("Tracked() = %d, want 0", limiter.Tracked())
	}
}

func TestAllow_Burst(t *testing.T) {
	limiter := NewLimiter(10, 20)
	defer limiter.Stop()

	key := "192.0.2.43"
	for i := 0; i < 20; i++ {
		if !limiter.Allow(key) {
			t.Errorf("request %d denied, should be allowed (within burst)", i)
		}
	}
	if limiter.Allow(key) {
		t.Error("request after burst should be denied")
	}
}

func TestAllow_IndependentClients(t *testing.T) {
	limiter := NewLimiter(10, 3)
	defer limiter.Stop()

	keys := []string{"192.0.2.43", "2001:db8:cafe::17", "_SEVKISEK"}
	for _, key := range keys {
		for i := 0; i < 3; i++ {
			if !limiter.Allow(key) {
				t.Errorf("client %s request %d denied, should be allowed", key, i)
			}
		}
		if limiter.Allow(key) {
			t.Errorf("client %s exceeded burst, should be denied", key)
		}
	}
}

func TestAllow_Refill(t *testing.T) {
	limiter := NewLimiter(100, 1)
	defer limiter.Stop()

	now := time.Now()
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("_a") {
		t.Fatal("first request denied")
	}
	if limiter.Allow("_a") {
		t.Error("second request should be denied (burst used)")
	}

	now = now.Add(20 * time.Millisecond)
	if !limiter.Allow("_a") {
		t.Error("request after refill should be allowed")
	}
}

func TestAllow_MaxTrackedClients(t *testing.T) {
	limiter := NewLimiter(10, 1)
	defer limiter.Stop()

	for i := 0; i < maxTrackedClients; i++ {
		limiter.Allow(fmt.Sprintf("_client%d", i))
	}
	if limiter.Allow("_one-too-many") {
		t.Error("new client should be rejected at capacity")
	}
	if got := limiter.Tracked(); got != maxTrackedClients {
		t.Errorf("Tracked() = %d, want %d", got, maxTrackedClients)
	}
}

func TestCleanupIdle(t *testing.T) {
	limiter := NewLimiter(10, 10)
	defer limiter.Stop()

	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Allow("192.0.2.1")
	limiter.Allow("192.0.2.2")

	now = now.Add(idleTimeout / 2)
	limiter.Allow("192.0.2.3")

	now = now.Add(idleTimeout/2 + time.Second)
	limiter.cleanupIdle()

	if got := limiter.Tracked(); got != 1 {
		t.Errorf("Tracked() after cleanup = %d, want 1", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := NewLimiter(100, 50)
	defer limiter.Stop()

	const goroutines = 50
	const requestsPerGoroutine = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed, denied := 0, 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < requestsPerGoroutine; j++ {
				ok := limiter.Allow("192.0.2.43")
				mu.Lock()
				if ok {
					allowed++
				} else {
					denied++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if denied == 0 {
		t.Error("expected some requests to be denied")
	}
	if allowed+denied != goroutines*requestsPerGoroutine {
		t.Errorf("allowed + denied = %d, want %d", allowed+denied, goroutines*requestsPerGoroutine)
	}
}

func TestStop(t *testing.T) {
	limiter := NewLimiter(10, 5)
	limiter.Stop()
	limiter.Stop()
}

func BenchmarkAllow(b *testing.B) {
	limiter := NewLimiter(1000, 100)
	defer limiter.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow("192.0.2.43")
	}
}
