package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a Registry run when NewRegistry gets no timeout.
const DefaultTimeout = 5 * time.Second

// Registry holds the checks of a process and runs them under a timeout.
// It is safe for concurrent use.
type Registry struct {
	timeout time.Duration

	mu     sync.RWMutex
	checks []Checker
}

// NewRegistry returns an empty registry. A timeout <= 0 means
// DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{timeout: timeout}
}

// Add registers c, replacing an earlier check with the same name.
func (r *Registry) Add(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.checks {
		if old.Name() == c.Name() {
			r.checks[i] = c
			return
		}
	}
	r.checks = append(r.checks, c)
}

// Names lists the registered checks in the order they were added.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.Name()
	}
	return names
}

// Run runs the check called name.
func (r *Registry) Run(ctx context.Context, name string) (Result, error) {
	r.mu.RLock()
	var found Checker
	for _, c := range r.checks {
		if c.Name() == name {
			found = c
			break
		}
	}
	r.mu.RUnlock()
	if found == nil {
		return Result{}, ErrUnknownCheck
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return run(ctx, found), nil
}

// Report is the combined outcome of every registered check.
type Report struct {
	// Status is the worst status among Results, or healthy when empty.
	Status  Status
	Results map[string]Result
}

// RunAll runs every check concurrently. A check still running at the
// timeout is reported unhealthy with ErrCheckTimeout.
func (r *Registry) RunAll(ctx context.Context) Report {
	r.mu.RLock()
	checks := append([]Checker(nil), r.checks...)
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make([]Result, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			results[i] = run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Status: StatusHealthy, Results: make(map[string]Result, len(checks))}
	for i, c := range checks {
		rep.Results[c.Name()] = results[i]
		rep.Status = max(rep.Status, results[i].Status)
	}
	return rep
}

// run calls c and gives up when ctx is done. The abandoned call finishes
// in the background.
func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- c.Check(ctx) }()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Unhealthy("check timed out", ErrCheckTimeout)
	}
	res.Took = time.Since(start)
	res.At = start
	return res
}
