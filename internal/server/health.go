package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Database health states.
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// DBHealth is a snapshot of the database health as seen by a HealthMonitor.
type DBHealth struct {
	LastCheck        time.Time `json:"last_check"`
	LastHealthy      time.Time `json:"last_healthy"`
	Status           string    `json:"status"`
	ConsecutiveFails int       `json:"consecutive_failures"`
}

// HealthMonitor pings the database periodically and tracks whether it
// answers.
//
// The database is marked unhealthy after maxFailures consecutive failed
// pings and healthy again on the first successful one. Each transition is
// logged and reported to the onChange callback.
//
// Lifecycle:
//  1. Create with NewHealthMonitor
//  2. Optionally set a callback with SetOnChange
//  3. Run Start in a goroutine
//  4. Call Stop, or cancel the context given to Start
type HealthMonitor struct {
	health      DBHealth
	checkFunc   func(ctx context.Context) error
	onChange    func(healthy bool)
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	interval    time.Duration
	timeout     time.Duration
	mu          sync.RWMutex
	wg          sync.WaitGroup
	maxFailures int
}

// NewHealthMonitor creates a monitor that runs check every interval.
//
// Parameters:
//   - check: the health check, usually the gateway's Ping
//   - interval: time between checks
//   - logger: destination of state transitions; nil uses the package logger
func NewHealthMonitor(check func(ctx context.Context) error, interval time.Duration, logger *log.Logger) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = defaultLogger
	}
	return &HealthMonitor{
		health:      DBHealth{Status: StatusUnknown},
		checkFunc:   check,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
	}
}

// SetOnChange registers a callback invoked when the database turns healthy
// or unhealthy. It must be set before Start.
func (h *HealthMonitor) SetOnChange(fn func(healthy bool)) {
	h.onChange = fn
}

// Start checks immediately and then every interval until ctx is cancelled
// or Stop is called. It blocks.
func (h *HealthMonitor) Start(ctx context.Context) {
	h.wg.Add(1)
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Printf("database health monitor started with interval %v", h.interval)
	h.check(ctx)

	for {
		select {
		case <-ticker.C:
			h.check(ctx)
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop ends Start and waits for it to return.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
}

func (h *HealthMonitor) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.checkFunc(checkCtx)
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.health.LastCheck = time.Now()

	if err != nil {
		h.health.ConsecutiveFails++
		h.logger.Printf("database health check failed (attempt %d/%d): %v",
			h.health.ConsecutiveFails, h.maxFailures, err)
		if h.health.ConsecutiveFails >= h.maxFailures && h.health.Status != StatusUnhealthy {
			h.health.Status = StatusUnhealthy
			h.logger.Printf("database marked unhealthy after %d failures", h.health.ConsecutiveFails)
			if h.onChange != nil {
				h.onChange(false)
			}
		}
		return
	}

	previous := h.health.Status
	h.health.Status = StatusHealthy
	h.health.ConsecutiveFails = 0
	h.health.LastHealthy = h.health.LastCheck
	if previous == StatusUnhealthy {
		h.logger.Println("database recovered")
	}
	if previous != StatusHealthy && h.onChange != nil {
		h.onChange(true)
	}
}

// Health returns a copy of the current state.
func (h *HealthMonitor) Health() DBHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health
}

// Healthy reports whether the database is not known to be down.
func (h *HealthMonitor) Healthy() bool {
	return h.Health().Status != StatusUnhealthy
}
