// Package browser owns the single headless browser process (C5) and the
// per-request isolated browser contexts carrying a randomised fingerprint
// (C6).
package browser

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/purify/config"
	"github.com/use-agent/purify/models"
)

type state int

const (
	stateNone state = iota
	stateLaunching
	stateReady
)

// handle wraps one live browser process.
type handle struct {
	browser *rod.Browser
	pid     int
}

// pending tracks a launch in flight so concurrent acquires during a cold
// start share a single launch instead of racing to start their own.
type pending struct {
	h    *handle
	err  error
	done chan struct{}
}

// Pool owns exactly one browser process at a time, lazily launching it on
// first use and recycling it once a request budget is exhausted or the
// process disconnects unexpectedly. Safe for concurrent use.
type Pool struct {
	mu             sync.Mutex
	state          state
	current        *handle
	inflight       *pending
	requestsServed int
	generation     uint64

	cfg        config.BrowserConfig
	budget     int
	proxyIndex atomic.Int64

	launch       func() (*handle, error)
	startMonitor func(h *handle, generation uint64)
}

// NewPool builds a Pool from configuration. The browser itself is not
// launched until the first Acquire.
func NewPool(cfg config.BrowserConfig) *Pool {
	p := &Pool{cfg: cfg, budget: cfg.MaxRequests}
	p.launch = p.defaultLaunch
	p.startMonitor = p.defaultMonitor
	return p
}

// Acquire returns the current browser, launching one if necessary and
// recycling the current one if it has served its request budget.
func (p *Pool) Acquire(ctx context.Context) (*rod.Browser, error) {
	p.mu.Lock()

	if p.state == stateReady {
		if p.budget > 0 && p.requestsServed >= p.budget {
			stale := p.current
			p.state = stateNone
			p.current = nil
			p.requestsServed = 0
			p.generation++
			p.mu.Unlock()
			go closeHandle(stale)
			return p.Acquire(ctx)
		}
		p.requestsServed++
		b := p.current.browser
		p.mu.Unlock()
		return b, nil
	}

	if p.state == stateLaunching {
		inflight := p.inflight
		p.mu.Unlock()
		select {
		case <-inflight.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if inflight.err != nil {
			return nil, inflight.err
		}
		p.mu.Lock()
		p.requestsServed++
		b := p.current.browser
		p.mu.Unlock()
		return b, nil
	}

	// state == stateNone: start a launch and let concurrent callers share it.
	pend := &pending{done: make(chan struct{})}
	p.state = stateLaunching
	p.inflight = pend
	generation := p.generation
	p.mu.Unlock()

	h, err := p.launch()

	p.mu.Lock()
	if err != nil {
		p.state = stateNone
		p.inflight = nil
		p.mu.Unlock()
		pend.err = err
		close(pend.done)
		return nil, err
	}
	p.current = h
	p.state = stateReady
	p.requestsServed = 1
	p.inflight = nil
	p.mu.Unlock()

	pend.h = h
	close(pend.done)
	p.startMonitor(h, generation)
	return h.browser, nil
}

// Close gracefully shuts down the current browser, if any.
func (p *Pool) Close() {
	p.mu.Lock()
	h := p.current
	p.state = stateNone
	p.current = nil
	p.generation++
	p.mu.Unlock()
	closeHandle(h)
}

// Stats returns a snapshot of the pool's current state.
func (p *Pool) Stats() models.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	active := 0
	pid := 0
	if p.state == stateReady {
		active = 1
		pid = p.current.pid
	}
	return models.PoolStats{
		MaxPages:    p.budget,
		ActivePages: active,
		BrowserPID:  pid,
	}
}

func closeHandle(h *handle) {
	if h == nil || h.browser == nil {
		return
	}
	if err := h.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
}

// nextProxy returns the next proxy in round-robin order, or "" if none
// configured.
func (p *Pool) nextProxy() string {
	if len(p.cfg.ProxyList) == 0 {
		return ""
	}
	i := p.proxyIndex.Add(1) - 1
	return p.cfg.ProxyList[int(i)%len(p.cfg.ProxyList)]
}

func (p *Pool) defaultLaunch() (*handle, error) {
	l := launcher.New().
		Headless(p.cfg.Headless).
		NoSandbox(p.cfg.NoSandbox)

	if p.cfg.BrowserBin != "" {
		l = l.Bin(p.cfg.BrowserBin)
	}
	if proxy := p.nextProxy(); proxy != "" {
		l = l.Proxy(proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "pid", l.PID())

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrInternal, "failed to connect to browser", err)
	}

	return &handle{browser: b, pid: l.PID()}, nil
}

// defaultMonitor polls the browser's CDP endpoint and retires the pool's
// handle if it stops responding, but only if that handle is still the
// current one (a stale disconnect from a browser already recycled must not
// clear a newer handle).
func (p *Pool) defaultMonitor(h *handle, generation uint64) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := (proto.BrowserGetVersion{}).Call(h.browser); err != nil {
				p.mu.Lock()
				if p.generation == generation && p.current == h {
					slog.Warn("browser disconnected, will relaunch on next acquire", "error", err)
					p.state = stateNone
					p.current = nil
					p.requestsServed = 0
					p.generation++
					p.mu.Unlock()
				} else {
					p.mu.Unlock()
				}
				return
			}
		}
	}()
}
