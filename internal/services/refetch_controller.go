package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"evcharge/internal/config"
	"evcharge/internal/domain/entities"
)

// RefetchState is where the controller sits between viewport events.
type RefetchState int

const (
	RefetchIdle RefetchState = iota
	RefetchPending
	RefetchSuppressed
)

func (s RefetchState) String() string {
	switch s {
	case RefetchIdle:
		return "idle"
	case RefetchPending:
		return "pending"
	case RefetchSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// FetchFunc runs a station search for a viewport.
type FetchFunc func(ctx context.Context, v entities.Viewport) []entities.Station

// DeliverFunc receives the stations of a finished fetch. generation grows
// with every fetch the controller starts, so a sink can reject anything
// older than what it already holds.
type DeliverFunc func(generation uint64, v entities.Viewport, stations []entities.Station)

// RefetchController decides when a moving map viewport triggers a new station
// search: it debounces bursts of viewport events, throttles searches to a
// minimum interval, ignores the events caused by programmatic camera moves
// while suppressed, and drops results that a newer fetch has overtaken.
//
// Go Learning Note — Timers and Stale Callbacks:
// Stopping a timer does not guarantee its callback will not run: the timer
// may already have fired and be blocked waiting for c.mu. Each timer
// therefore captures the sequence number current when it was armed and does
// nothing if the sequence has moved on by the time it gets the lock.
type RefetchController struct {
	cfg     config.RefetchConfig
	clock   Clock
	fetch   FetchFunc
	deliver DeliverFunc
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       RefetchState
	mode        entities.MapMode
	pending     entities.Viewport
	debounce    Timer
	debounceSeq uint64
	suppress    Timer
	suppressSeq uint64
	lastFetch   time.Time
	hasFetched  bool
	generation  uint64
	closed      bool
}

// NewRefetchController creates an idle controller in browsing mode.
func NewRefetchController(cfg config.RefetchConfig, clock Clock, fetch FetchFunc, deliver DeliverFunc, logger *zap.Logger) *RefetchController {
	if clock == nil {
		clock = SystemClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RefetchController{
		cfg:     cfg,
		clock:   clock,
		fetch:   fetch,
		deliver: deliver,
		logger:  logger.Named("refetch"),
		ctx:     ctx,
		cancel:  cancel,
		state:   RefetchIdle,
		mode:    entities.MapModeBrowsing,
	}
}

// State returns the current controller state.
func (c *RefetchController) State() RefetchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the generation of the most recently started fetch.
func (c *RefetchController) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// SetMode records the map mode. Leaving browsing cancels a pending search.
func (c *RefetchController) SetMode(mode entities.MapMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	if mode != entities.MapModeBrowsing && c.state == RefetchPending {
		c.stopDebounceLocked()
		c.state = RefetchIdle
	}
}

// OnViewportChanged schedules a search for v once the viewport has been still
// for the debounce window. Events are ignored while suppressed or outside
// browsing mode.
func (c *RefetchController) OnViewportChanged(v entities.Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state == RefetchSuppressed || c.mode != entities.MapModeBrowsing {
		return
	}

	c.stopDebounceLocked()
	c.pending = v
	c.state = RefetchPending
	seq := c.debounceSeq
	c.debounce = c.clock.AfterFunc(c.cfg.Debounce, func() { c.onDebounce(seq) })
}

// SuppressNextChange ignores viewport events until the suppression window
// elapses. Call it before a programmatic camera move. Any pending search is
// cancelled and a repeated call restarts the window.
func (c *RefetchController) SuppressNextChange() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.stopDebounceLocked()
	if c.suppress != nil {
		c.suppress.Stop()
	}
	c.suppressSeq++
	seq := c.suppressSeq
	c.state = RefetchSuppressed
	c.suppress = c.clock.AfterFunc(c.cfg.SuppressWindow, func() { c.onSuppressionEnd(seq) })
}

// FetchNow searches v immediately on the calling goroutine, bypassing the
// debounce and throttle, and delivers the result if no newer fetch has
// started meanwhile. It does not start the throttle interval, so the first
// pan after the initial load is always searched.
func (c *RefetchController) FetchNow(ctx context.Context, v entities.Viewport) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.runFetch(ctx, gen, v)
}

// Close stops all timers, cancels in-flight fetches and waits for them.
func (c *RefetchController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopDebounceLocked()
	if c.suppress != nil {
		c.suppress.Stop()
	}
	c.suppressSeq++
	c.state = RefetchIdle
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// Wait blocks until every background fetch started so far has finished.
func (c *RefetchController) Wait() {
	c.wg.Wait()
}

func (c *RefetchController) onDebounce(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.debounceSeq || c.state != RefetchPending {
		c.mu.Unlock()
		return
	}
	c.debounce = nil
	c.state = RefetchIdle

	now := c.clock.Now()
	if c.hasFetched && now.Sub(c.lastFetch) < c.cfg.MinFetchInterval {
		c.mu.Unlock()
		c.logger.Debug("search throttled", zap.Duration("since_last", now.Sub(c.lastFetch)))
		return
	}

	v := c.pending
	gen := c.startFetchLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.runFetch(c.ctx, gen, v)
	}()
}

func (c *RefetchController) onSuppressionEnd(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.suppressSeq || c.state != RefetchSuppressed {
		return
	}
	c.suppress = nil
	c.state = RefetchIdle
}

// startFetchLocked starts the throttle interval and returns the generation
// of the new fetch. c.mu must be held.
func (c *RefetchController) startFetchLocked() uint64 {
	c.lastFetch = c.clock.Now()
	c.hasFetched = true
	c.generation++
	return c.generation
}

func (c *RefetchController) runFetch(ctx context.Context, gen uint64, v entities.Viewport) {
	stations := c.fetch(ctx, v)

	c.mu.Lock()
	latest := c.generation
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}
	if gen != latest {
		c.logger.Debug("discarding stale search result", zap.Uint64("generation", gen), zap.Uint64("latest", latest))
		return
	}
	c.deliver(gen, v, stations)
}

// stopDebounceLocked cancels the pending debounce timer. c.mu must be held.
func (c *RefetchController) stopDebounceLocked() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	c.debounceSeq++
}
