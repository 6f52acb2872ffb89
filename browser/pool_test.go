package browser

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/use-agent/purify/config"
)

// newTestPool builds a Pool whose launch and monitor are faked out so the
// state machine can be exercised without a real browser process.
func newTestPool(budget int) (*Pool, *int32Counter) {
	p := NewPool(config.BrowserConfig{MaxRequests: budget})
	launches := &int32Counter{}
	p.launch = func() (*handle, error) {
		launches.inc()
		return &handle{}, nil
	}
	p.startMonitor = func(h *handle, generation uint64) {}
	return p, launches
}

type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *int32Counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestPool_LaunchesOnceForConcurrentAcquires(t *testing.T) {
	p, launches := newTestPool(0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Acquire(context.Background()); err != nil {
				t.Errorf("unexpected acquire error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := launches.get(); got != 1 {
		t.Fatalf("expected exactly 1 launch, got %d", got)
	}
}

func TestPool_RecyclesAfterBudget(t *testing.T) {
	p, launches := newTestPool(2)

	for i := 0; i < 5; i++ {
		if _, err := p.Acquire(context.Background()); err != nil {
			t.Fatalf("unexpected acquire error: %v", err)
		}
	}

	// 5 acquires against a budget of 2 must force at least 2 extra launches
	// (recycle at request 3 and request 5).
	if got := launches.get(); got < 3 {
		t.Fatalf("expected at least 3 launches from budget recycling, got %d", got)
	}
}

func TestPool_SurfacesLaunchError(t *testing.T) {
	p, _ := newTestPool(0)
	boom := errors.New("boom")
	p.launch = func() (*handle, error) { return nil, boom }

	_, err := p.Acquire(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}

func TestPool_RetriesAfterLaunchFailure(t *testing.T) {
	p, launches := newTestPool(0)
	calls := 0
	p.launch = func() (*handle, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		launches.inc()
		return &handle{}, nil
	}

	if _, err := p.Acquire(context.Background()); err == nil {
		t.Fatal("expected first acquire to fail")
	}
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("expected second acquire to succeed, got %v", err)
	}
}

func TestPool_CloseResetsState(t *testing.T) {
	p, _ := newTestPool(0)
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected acquire error: %v", err)
	}
	p.Close()

	stats := p.Stats()
	if stats.ActivePages != 0 {
		t.Fatalf("expected no active browser after Close, got stats %+v", stats)
	}
}
