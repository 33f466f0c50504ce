// Package governor protects the reasoning endpoint from runaway or
// degraded-service call volume. Every call to the endpoint, from any
// component, goes through Governor.Do, which layers a per-project quota, a
// steady-state rate limiter, bounded exponential-backoff retry, and a
// latching circuit breaker.
//
// Unlike a conventional breaker there is no half-open probe: once the
// consecutive-error threshold is reached the breaker trips and stays
// tripped for the remainder of the process. Sustained endpoint failure
// means the rest of the audit run cannot produce useful verdicts, so the
// driver is expected to stop issuing work.
package governor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned by Do once the breaker has tripped. No network
// attempt is made.
var ErrCircuitOpen = errors.New("reasoning endpoint circuit breaker tripped")

// ErrQuotaExceeded is returned by Do when the project's call counter has
// reached its ceiling.
var ErrQuotaExceeded = errors.New("project call quota exceeded")

// Config holds governor tuning.
type Config struct {
	MaxAttempts        int           // total attempts per Do, including the first (default: 5)
	InitialBackoff     time.Duration // first retry wait (default: 4s)
	MaxBackoff         time.Duration // backoff cap (default: 10s)
	TripThreshold      int           // consecutive failures before the breaker latches (default: 5)
	MaxCallsPerProject int           // per-project governed-call ceiling (default: 100)
	CallsPerSecond     float64       // steady-state rate toward the endpoint (default: 2)
	MaxConcurrentCalls int64         // concurrent governed calls (default: 1; the audit loop is sequential)
}

// DefaultConfig returns the default governor configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:        5,
		InitialBackoff:     4 * time.Second,
		MaxBackoff:         10 * time.Second,
		TripThreshold:      5,
		MaxCallsPerProject: 100,
		CallsPerSecond:     2,
		MaxConcurrentCalls: 1,
	}
}

// Governor is the process-wide call governor. All mutable state lives
// behind its mutex so the host can later parallelize projects without
// changing callers.
type Governor struct {
	cfg     Config
	limiter *rate.Limiter
	sem     *semaphore.Weighted

	mu                sync.Mutex
	consecutiveErrors int
	tripped           bool
	projectCalls      map[string]int

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a governor with the given configuration. Zero fields are
// filled in from DefaultConfig.
func New(cfg Config) *Governor {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.TripThreshold <= 0 {
		cfg.TripThreshold = def.TripThreshold
	}
	if cfg.MaxCallsPerProject <= 0 {
		cfg.MaxCallsPerProject = def.MaxCallsPerProject
	}
	if cfg.CallsPerSecond <= 0 {
		cfg.CallsPerSecond = def.CallsPerSecond
	}
	if cfg.MaxConcurrentCalls <= 0 {
		cfg.MaxConcurrentCalls = def.MaxConcurrentCalls
	}

	return &Governor{
		cfg:          cfg,
		limiter:      rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), 1),
		sem:          semaphore.NewWeighted(cfg.MaxConcurrentCalls),
		projectCalls: make(map[string]int),
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-time.After(d):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Do executes fn under the governor's protection. It consumes one unit of
// the project's quota, waits for the rate limiter, and retries transient
// failures with exponential backoff (wait = min(MaxBackoff,
// InitialBackoff·2^attempt)) up to MaxAttempts total attempts.
//
// Non-retryable failures propagate immediately without consuming a retry
// slot; they still count toward the breaker's consecutive-error threshold,
// since a misbehaving endpoint can surface as malformed-request errors too.
func (g *Governor) Do(ctx context.Context, project, operation string, fn func(context.Context) error) error {
	if g.Tripped() {
		return fmt.Errorf("%s blocked: %w", operation, ErrCircuitOpen)
	}
	if err := g.reserveCall(project); err != nil {
		return fmt.Errorf("%s blocked for project %s: %w", operation, project, err)
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%s failed to acquire call slot: %w", operation, err)
	}
	defer g.sem.Release(1)

	var lastErr error
	backoff := g.cfg.InitialBackoff

	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		// The breaker may have latched during our own backoff or another
		// caller's failure streak; check before every attempt.
		if g.Tripped() {
			return fmt.Errorf("%s blocked: %w", operation, ErrCircuitOpen)
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s canceled waiting for rate limiter: %w", operation, err)
		}

		err := fn(ctx)
		if err == nil {
			g.recordSuccess()
			if attempt > 0 {
				fmt.Printf("governed call %s succeeded after %d retries\n", operation, attempt)
			}
			return nil
		}
		lastErr = err
		g.recordFailure(operation)

		if !IsRetryable(err) {
			fmt.Fprintf(os.Stderr, "governed call %s failed with non-retryable error: %v\n", operation, err)
			return err
		}

		if attempt == g.cfg.MaxAttempts-1 {
			break
		}

		fmt.Printf("governed call %s failed (attempt %d/%d), retrying in %v: %v\n",
			operation, attempt+1, g.cfg.MaxAttempts, backoff, err)

		if err := g.sleep(ctx, backoff); err != nil {
			return fmt.Errorf("%s canceled during backoff: %w", operation, err)
		}
		backoff *= 2
		if backoff > g.cfg.MaxBackoff {
			backoff = g.cfg.MaxBackoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, g.cfg.MaxAttempts, lastErr)
}

// CheckQuota reports whether the project's call counter is still below its
// ceiling. Callers must stop issuing new calls for the project once this
// returns false; in-flight work completes normally.
func (g *Governor) CheckQuota(project string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.projectCalls[project] < g.cfg.MaxCallsPerProject
}

// CallCount returns how many governed calls the project has consumed.
func (g *Governor) CallCount(project string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.projectCalls[project]
}

// Tripped reports whether the circuit breaker has latched. Once true it
// stays true for the process lifetime.
func (g *Governor) Tripped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped
}

// ConsecutiveErrors returns the current failure streak (for monitoring).
func (g *Governor) ConsecutiveErrors() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consecutiveErrors
}

func (g *Governor) reserveCall(project string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.projectCalls[project] >= g.cfg.MaxCallsPerProject {
		return ErrQuotaExceeded
	}
	g.projectCalls[project]++
	return nil
}

func (g *Governor) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveErrors = 0
}

func (g *Governor) recordFailure(operation string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tripped {
		return
	}
	g.consecutiveErrors++
	if g.consecutiveErrors >= g.cfg.TripThreshold {
		g.tripped = true
		fmt.Fprintf(os.Stderr, "circuit breaker tripped after %d consecutive failures (last operation: %s); all further governed calls fail fast\n",
			g.consecutiveErrors, operation)
	}
}
