package health

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCheckTimeout = errors.New("health: check did not finish in time")
	ErrUnknownCheck = errors.New("health: no such check")

	// ErrBreakerOpen marks a query cache whose store breaker rejects calls.
	ErrBreakerOpen = errors.New("health: store breaker open")
)

// Status orders component health from best to worst.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded components still serve, with reduced capability.
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Result is the outcome of one check. Took and At are filled in by the
// Registry.
type Result struct {
	Status  Status
	Message string
	Details map[string]any
	Err     error

	Took time.Duration
	At   time.Time
}

func Healthy(msg string) Result  { return Result{Status: StatusHealthy, Message: msg} }
func Degraded(msg string) Result { return Result{Status: StatusDegraded, Message: msg} }

func Unhealthy(msg string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: msg, Err: err}
}

// WithDetails returns r carrying details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker reports the health of one named component. Check must return
// promptly once ctx is done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type namedFunc struct {
	name string
	fn   func(context.Context) Result
}

// CheckFunc turns fn into a Checker called name.
func CheckFunc(name string, fn func(context.Context) Result) Checker {
	return namedFunc{name: name, fn: fn}
}

func (f namedFunc) Name() string                     { return f.name }
func (f namedFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
