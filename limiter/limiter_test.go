package limiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_BoundsConcurrency(t *testing.T) {
	const max = 3
	const tasks = 20

	l := New(max)
	var active int32
	var peak int32
	var wg sync.WaitGroup

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Run(context.Background(), l, func(ctx context.Context) (struct{}, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return struct{}{}, nil
			})
		}()
	}
	wg.Wait()

	if peak > max {
		t.Fatalf("observed concurrency %d exceeds max %d", peak, max)
	}
}

func TestRun_FailureReleasesSlot(t *testing.T) {
	l := New(1)
	boom := errors.New("boom")

	_, err := Run(context.Background(), l, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}

	// If the slot wasn't released, this would deadlock; the test timeout
	// catches that case.
	done := make(chan struct{})
	go func() {
		_, _ = Run(context.Background(), l, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("slot was not released after a failing task")
	}
}

func TestNew_ClampsToAtLeastOne(t *testing.T) {
	l := New(0)
	if l.Max() != 1 {
		t.Fatalf("expected max clamped to 1, got %d", l.Max())
	}
	l = New(-5)
	if l.Max() != 1 {
		t.Fatalf("expected max clamped to 1, got %d", l.Max())
	}
}
