package performance

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsTasks(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Stop()

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		ok := pool.Submit(func() {
			count.Add(1)
			wg.Done()
		})
		if !ok {
			wg.Done()
			t.Fatalf("Submit rejected task %d", i)
		}
	}
	wg.Wait()

	if got := count.Load(); got != 50 {
		t.Errorf("ran %d tasks, want 50", got)
	}
}

func TestWorkerPoolSubmitBeforeStart(t *testing.T) {
	pool := NewWorkerPool(2)
	if pool.Submit(func() {}) {
		t.Error("Submit accepted a task before Start")
	}
}

func TestWorkerPoolStopIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	pool.Stop()
	pool.Stop()

	if pool.Stats().Running {
		t.Error("pool reports running after Stop")
	}
}

func TestWorkerPoolStats(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		pool.Submit(func() { wg.Done() })
	}
	wg.Wait()
	pool.Stop()

	stats := pool.Stats()
	if stats.Workers != 3 {
		t.Errorf("Workers = %d, want 3", stats.Workers)
	}
	if stats.TasksTotal != 5 {
		t.Errorf("TasksTotal = %d, want 5", stats.TasksTotal)
	}
	if stats.TasksDone != 5 {
		t.Errorf("TasksDone = %d, want 5", stats.TasksDone)
	}
}

func TestRateLimiterBurstThenDeny(t *testing.T) {
	limiter := NewRateLimiter(1, 2) // 1/sec, burst 2

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("burst tokens not available")
	}
	if limiter.Allow() {
		t.Error("third request allowed immediately after burst drained")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := NewRateLimiter(100, 1) // refills in 10ms

	if !limiter.Allow() {
		t.Fatal("first request denied")
	}
	time.Sleep(20 * time.Millisecond)
	if !limiter.Allow() {
		t.Error("token not refilled after waiting")
	}
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	limiter.Allow() // drain the only token

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestPerMinutePacing(t *testing.T) {
	limiter := PerMinute(6000) // 100/sec

	if !limiter.Allow() {
		t.Fatal("first request denied")
	}
	if limiter.Allow() {
		t.Error("single-call burst allowed back-to-back requests")
	}
}

// BenchmarkWorkerPool benchmarks task round-trips through the pool.
func BenchmarkWorkerPool(b *testing.B) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		done := make(chan struct{})
		pool.Submit(func() {
			close(done)
		})
		<-done
	}
}

// BenchmarkRateLimiter benchmarks the token bucket under no contention.
func BenchmarkRateLimiter(b *testing.B) {
	limiter := NewRateLimiter(10000, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow()
	}
}
