package paysplit

import (
	"context"
	"sync"
	"time"
)

// ExecutionGuard deduplicates concurrent execute attempts for the same
// invoice within this process. It caches terminal execution results and
// tracks in-flight attempts so retries after timeouts share one ledger
// write instead of racing a second transfer. The ledger's own paid state
// remains the authoritative cross-process guard; this only collapses local
// races.
type ExecutionGuard struct {
	mu       sync.Mutex
	results  map[string]*ExecuteResult
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

// NewExecutionGuard creates a guard whose cached results expire after ttl.
func NewExecutionGuard(ttl time.Duration) *ExecutionGuard {
	return &ExecutionGuard{
		results:  make(map[string]*ExecuteResult),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// ExecutionStatus is the result of checking the guard for an invoice.
type ExecutionStatus int

const (
	// ExecutionNotFound means no cached result and no in-flight attempt;
	// the caller now owns the slot and must Complete or Fail it.
	ExecutionNotFound ExecutionStatus = iota
	// ExecutionCached means a previous attempt already settled this
	// invoice and its result is available.
	ExecutionCached
	// ExecutionInFlight means another attempt is currently executing.
	ExecutionInFlight
)

// CheckAndMark atomically checks the guard and claims the invoice if it is
// idle. Returns the cached result, or a channel to wait on when another
// attempt is in flight, or a done channel the caller must close via
// Complete or Fail.
func (g *ExecutionGuard) CheckAndMark(invoiceID string) (ExecutionStatus, *ExecuteResult, chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, exists := g.expiry[invoiceID]; exists {
		if time.Now().Before(expiry) {
			if result, ok := g.results[invoiceID]; ok {
				return ExecutionCached, result, nil
			}
		}
		delete(g.results, invoiceID)
		delete(g.expiry, invoiceID)
	}

	if done, exists := g.inFlight[invoiceID]; exists {
		return ExecutionInFlight, nil, done
	}

	done := make(chan struct{})
	g.inFlight[invoiceID] = done
	return ExecutionNotFound, nil, done
}

// WaitForResult blocks until the in-flight attempt completes or the context
// is cancelled. A nil result with nil error means the attempt failed and
// the caller may retry.
func (g *ExecutionGuard) WaitForResult(ctx context.Context, invoiceID string, done chan struct{}) (*ExecuteResult, error) {
	select {
	case <-done:
		return g.Get(invoiceID), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the cached result for an invoice if present and unexpired.
func (g *ExecutionGuard) Get(invoiceID string) *ExecuteResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, exists := g.expiry[invoiceID]
	if !exists {
		return nil
	}
	if time.Now().After(expiry) {
		delete(g.results, invoiceID)
		delete(g.expiry, invoiceID)
		return nil
	}
	return g.results[invoiceID]
}

// Complete records a terminal result, releases the in-flight slot, and
// wakes any waiters.
func (g *ExecutionGuard) Complete(invoiceID string, result *ExecuteResult, done chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.results[invoiceID] = result
	g.expiry[invoiceID] = time.Now().Add(g.ttl)
	delete(g.inFlight, invoiceID)
	close(done)

	g.cleanupExpiredLocked()
}

// Fail releases the in-flight slot without caching, allowing a retry.
func (g *ExecutionGuard) Fail(invoiceID string, done chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, invoiceID)
	close(done)
}

func (g *ExecutionGuard) cleanupExpiredLocked() {
	now := time.Now()
	for id, expiry := range g.expiry {
		if now.After(expiry) {
			delete(g.results, id)
			delete(g.expiry, id)
		}
	}
}
