package graphql

import "time"

// Tracing reports request timing in the response extensions. Durations and
// offsets are in nanoseconds, offsets relative to StartTime.
type Tracing struct {
	Version    int       `json:"version"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Duration   int64     `json:"duration"`
	Parsing    *Phase    `json:"parsing,omitempty"`
	Validation *Phase    `json:"validation,omitempty"`
	Execution  *Phase    `json:"execution,omitempty"`

	// Cache is how the compiled document was obtained: hit, computed or
	// fallback.
	Cache string `json:"cache,omitempty"`
}

// Phase is one timed step of a request.
type Phase struct {
	StartOffset int64 `json:"startOffset"`
	Duration    int64 `json:"duration"`
}

func newTracing(start time.Time) *Tracing {
	return &Tracing{Version: 1, StartTime: start}
}

func (t *Tracing) phase(start, end time.Time) *Phase {
	return &Phase{
		StartOffset: start.Sub(t.StartTime).Nanoseconds(),
		Duration:    end.Sub(start).Nanoseconds(),
	}
}

func (t *Tracing) finish(end time.Time) {
	t.EndTime = end
	t.Duration = end.Sub(t.StartTime).Nanoseconds()
}
