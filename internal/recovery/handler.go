package recovery

import (
	"sync"
	"time"

	"tinychart/internal/logger"
	"tinychart/internal/models"
)

// ChartState is the recovery state of one chart id.
type ChartState string

const (
	StateIdle          ChartState = "idle"
	StateRetrying      ChartState = "retrying"
	StateCircuitBroken ChartState = "circuit-broken"
)

// Options configures a Handler.
type Options struct {
	MaxRetries      int
	RetryDelay      time.Duration
	BreakerCooldown time.Duration
	MaxLogSize      int
	Clock           Clock
	Scheduler       Scheduler
	Logger          *logger.Logger
}

// Handler owns retry counters, circuit breakers, and the error history
// for every chart id. All methods are safe for concurrent use.
type Handler struct {
	mu         sync.Mutex
	maxRetries int
	retryDelay time.Duration
	cooldown   time.Duration
	clock      Clock
	scheduler  Scheduler
	log        *logger.Logger

	retries  map[string]int // chartID|kind -> consecutive failures
	breakers map[string]models.CircuitBreakerState
	states   map[string]ChartState
	errors   *ErrorLog
}

// NewHandler creates a Handler. Zero option fields get defaults: 3 retries,
// 1s base delay, 5m cool-down, 100 log entries, system clock and timers.
func NewHandler(opts Options) *Handler {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobalLogger().WithComponent("recovery")
	}

	return &Handler{
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		cooldown:   opts.BreakerCooldown,
		clock:      opts.Clock,
		scheduler:  opts.Scheduler,
		log:        opts.Logger,
		retries:    make(map[string]int),
		breakers:   make(map[string]models.CircuitBreakerState),
		states:     make(map[string]ChartState),
		errors:     NewErrorLog(opts.MaxLogSize),
	}
}

// HandleError drives the recovery loop for one failure. retryFn re-runs
// the failed operation and must only return the error, not report it back
// here itself: the handler observes the returned error and drives the next
// step, so each real failure is counted once. placeholderFn renders the
// error placeholder when recovery gives up or is suppressed. Both may be
// nil. The call itself never blocks on the retry delay; retries run via
// the Scheduler.
func (h *Handler) HandleError(chartID string, err error, retryFn func() error, placeholderFn func()) {
	kind := Classify(err)
	now := h.clock.Now()

	h.mu.Lock()
	h.errors.Append(chartID, kind, err.Error(), now)

	if !kind.Retryable() {
		h.states[chartID] = StateIdle
		h.mu.Unlock()
		h.log.Error("non-retryable failure", err, map[string]interface{}{"chartId": chartID, "kind": kind})
		return
	}

	if h.breakerActiveLocked(chartID, now) {
		h.mu.Unlock()
		h.log.Warnf("circuit open for %s, rendering placeholder", chartID)
		if placeholderFn != nil {
			placeholderFn()
		}
		return
	}

	key := chartID + "|" + string(kind)
	h.retries[key]++
	attempt := h.retries[key]

	if attempt > h.maxRetries {
		// Exhausted: trip the breaker and give up on this cycle
		h.breakers[chartID] = models.CircuitBreakerState{
			ChartID:     chartID,
			ActivatedAt: now,
			ResetAt:     now.Add(h.cooldown),
		}
		h.states[chartID] = StateCircuitBroken
		delete(h.retries, key)
		h.mu.Unlock()

		h.log.Error("retries exhausted, circuit breaker activated", err, map[string]interface{}{
			"chartId":  chartID,
			"kind":     kind,
			"cooldown": h.cooldown.String(),
		})
		if placeholderFn != nil {
			placeholderFn()
		}
		return
	}

	h.states[chartID] = StateRetrying
	delay := h.retryDelay * time.Duration(attempt)
	h.mu.Unlock()

	h.log.Warnf("retry %d/%d for %s in %v", attempt, h.maxRetries, chartID, delay)

	if retryFn == nil {
		return
	}
	h.scheduler.AfterFunc(delay, func() {
		if retryErr := retryFn(); retryErr != nil {
			h.HandleError(chartID, retryErr, retryFn, placeholderFn)
			return
		}
		h.ClearRetries(chartID)
	})
}

// ClearRetries resets all retry counters for a chart and returns it to
// the idle state. Called after any successful creation. A chart whose
// breaker is still active stays circuit-broken: a breaker-suppressed
// create returns success without attempting anything.
func (h *Handler) ClearRetries(chartID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key := range h.retries {
		if len(key) > len(chartID) && key[:len(chartID)+1] == chartID+"|" {
			delete(h.retries, key)
		}
	}
	if !h.breakerActiveLocked(chartID, h.clock.Now()) {
		h.states[chartID] = StateIdle
	}
}

// BreakerActive reports whether a breaker currently suppresses retries for
// the chart. An expired breaker is removed on check (self-expiry).
func (h *Handler) BreakerActive(chartID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.breakerActiveLocked(chartID, h.clock.Now())
}

func (h *Handler) breakerActiveLocked(chartID string, now time.Time) bool {
	cb, ok := h.breakers[chartID]
	if !ok {
		return false
	}
	if !cb.Active(now) {
		delete(h.breakers, chartID)
		h.states[chartID] = StateIdle
		return false
	}
	return true
}

// ResetCircuitBreaker removes the breaker for a chart, allowing the next
// creation attempt to proceed immediately. Manual override.
func (h *Handler) ResetCircuitBreaker(chartID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.breakers, chartID)
	h.states[chartID] = StateIdle
}

// PurgeExpiredBreakers removes breakers whose cool-down has elapsed.
// Called by the maintenance tick; returns the number removed.
func (h *Handler) PurgeExpiredBreakers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	removed := 0
	for id, cb := range h.breakers {
		if !cb.Active(now) {
			delete(h.breakers, id)
			h.states[id] = StateIdle
			removed++
		}
	}
	return removed
}

// State returns the recovery state of a chart id.
func (h *Handler) State(chartID string) ChartState {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.states[chartID]; ok {
		return s
	}
	return StateIdle
}

// ErrorStatistics summarizes the handler's view of the system.
type ErrorStatistics struct {
	TotalErrors    int            `json:"totalErrors"`
	ByKind         map[string]int `json:"byKind"`
	ActiveBreakers int            `json:"activeBreakers"`
	RetryingCharts int            `json:"retryingCharts"`
}

// GetErrorStatistics returns aggregate error counts and breaker state.
func (h *Handler) GetErrorStatistics() ErrorStatistics {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	active := 0
	for _, cb := range h.breakers {
		if cb.Active(now) {
			active++
		}
	}
	retrying := 0
	for _, s := range h.states {
		if s == StateRetrying {
			retrying++
		}
	}

	return ErrorStatistics{
		TotalErrors:    h.errors.Len(),
		ByKind:         h.errors.CountByKind(),
		ActiveBreakers: active,
		RetryingCharts: retrying,
	}
}

// GetRecentErrors returns up to limit recent error entries, newest last.
func (h *Handler) GetRecentErrors(limit int) []models.ErrorLogEntry {
	return h.errors.Recent(limit)
}
