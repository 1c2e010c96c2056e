package cache

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Policy bounds what a Cache retains. The zero value disables caching.
type Policy struct {
	// MaximumSize caps the number of entries. Least recently used entries
	// are evicted first.
	MaximumSize int64

	// MaximumWeight caps the total weight of entries as measured by the
	// cache's Weigher. Mutually exclusive with MaximumSize.
	MaximumWeight int64

	// ExpireAfterWrite removes entries this long after they were stored.
	ExpireAfterWrite time.Duration

	// ExpireAfterAccess removes entries not read for this long.
	ExpireAfterAccess time.Duration

	// InitialCapacity and ConcurrencyLevel are accepted for compatibility
	// with existing specs. They have no effect.
	InitialCapacity  int
	ConcurrencyLevel int

	// RecordStats is accepted for compatibility. Stats are always recorded.
	RecordStats bool

	// Unbounded keeps entries until they expire or are invalidated. It is
	// set by specs that enable caching without a size or weight limit.
	Unbounded bool
}

// DefaultPolicy returns a policy that keeps the 1000 most recently used
// documents.
func DefaultPolicy() Policy {
	return Policy{MaximumSize: 1000}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if the policy retains entries at all.
func (p Policy) ShouldCache() bool {
	return p.MaximumSize > 0 || p.MaximumWeight > 0 || p.Unbounded
}

// String returns the policy in the spec syntax accepted by ParsePolicy.
func (p Policy) String() string {
	if !p.ShouldCache() {
		return "disabled"
	}
	var parts []string
	if p.InitialCapacity > 0 {
		parts = append(parts, "initialCapacity="+strconv.Itoa(p.InitialCapacity))
	}
	if p.MaximumSize > 0 {
		parts = append(parts, "maximumSize="+strconv.FormatInt(p.MaximumSize, 10))
	}
	if p.MaximumWeight > 0 {
		parts = append(parts, "maximumWeight="+strconv.FormatInt(p.MaximumWeight, 10))
	}
	if p.ConcurrencyLevel > 0 {
		parts = append(parts, "concurrencyLevel="+strconv.Itoa(p.ConcurrencyLevel))
	}
	if p.ExpireAfterWrite > 0 {
		parts = append(parts, "expireAfterWrite="+p.ExpireAfterWrite.String())
	}
	if p.ExpireAfterAccess > 0 {
		parts = append(parts, "expireAfterAccess="+p.ExpireAfterAccess.String())
	}
	if p.RecordStats {
		parts = append(parts, "recordStats")
	}
	if len(parts) == 0 {
		return "unbounded"
	}
	return strings.Join(parts, ",")
}

// Describe returns a human readable summary of the policy for logs.
func (p Policy) Describe() string {
	switch {
	case !p.ShouldCache():
		return "caching disabled"
	case p.MaximumWeight > 0:
		return fmt.Sprintf("up to %s of query text", humanize.IBytes(uint64(p.MaximumWeight)))
	case p.MaximumSize > 0:
		return fmt.Sprintf("up to %s documents", humanize.Comma(p.MaximumSize))
	default:
		return "unbounded"
	}
}

// Validate checks that the policy options are consistent.
func (p Policy) Validate() error {
	switch {
	case p.MaximumSize < 0:
		return fmt.Errorf("%w: maximumSize must not be negative", ErrInvalidPolicy)
	case p.MaximumWeight < 0:
		return fmt.Errorf("%w: maximumWeight must not be negative", ErrInvalidPolicy)
	case p.MaximumSize > 0 && p.MaximumWeight > 0:
		return fmt.Errorf("%w: maximumSize and maximumWeight are mutually exclusive", ErrInvalidPolicy)
	case p.ExpireAfterWrite < 0 || p.ExpireAfterAccess < 0:
		return fmt.Errorf("%w: expiry must not be negative", ErrInvalidPolicy)
	}
	return nil
}

var guavaDuration = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParsePolicy parses a cache spec of comma separated key=value pairs:
//
//	maximumSize=1000,expireAfterAccess=10m
//
// Recognized keys are maximumSize, maximumWeight, expireAfterWrite,
// expireAfterAccess, initialCapacity, concurrencyLevel and recordStats.
// Weights accept byte suffixes ("64MiB"). Durations take a single unit
// suffix of d, h, m or s, or any time.ParseDuration string.
//
// An empty spec, "off", "disabled", maximumSize=0 or maximumWeight=0
// disable caching. "unbounded", or a spec that sets no size or weight,
// keeps entries until they expire.
func ParsePolicy(spec string) (Policy, error) {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "", "off", "disabled":
		return NoCachePolicy(), nil
	case "unbounded":
		return Policy{Unbounded: true}, nil
	}

	var (
		p    Policy
		seen = make(map[string]bool)
	)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			return Policy{}, fmt.Errorf("%w: blank key-value pair in %q", ErrInvalidPolicy, spec)
		}
		key, value, hasValue := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if seen[key] {
			return Policy{}, fmt.Errorf("%w: %s was already set", ErrInvalidPolicy, key)
		}
		seen[key] = true

		if err := p.apply(key, value, hasValue); err != nil {
			return Policy{}, err
		}
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}

	if p.MaximumSize == 0 && p.MaximumWeight == 0 && !seen["maximumSize"] && !seen["maximumWeight"] {
		p.Unbounded = true
	}
	return p, nil
}

// MustParsePolicy is like ParsePolicy but panics on error.
func MustParsePolicy(spec string) Policy {
	p, err := ParsePolicy(spec)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Policy) apply(key, value string, hasValue bool) error {
	switch key {
	case "weakKeys", "weakValues", "softValues", "refreshAfterWrite":
		return fmt.Errorf("%w: %s", ErrUnsupportedOption, key)
	case "recordStats":
		if hasValue {
			return fmt.Errorf("%w: recordStats does not take a value", ErrInvalidPolicy)
		}
		p.RecordStats = true
		return nil
	}

	if !hasValue || value == "" {
		return fmt.Errorf("%w: value of key %s omitted", ErrInvalidPolicy, key)
	}

	var err error
	switch key {
	case "maximumSize":
		p.MaximumSize, err = parseCount(key, value)
	case "maximumWeight":
		var w uint64
		w, err = humanize.ParseBytes(value)
		if err != nil {
			return fmt.Errorf("%w: maximumWeight %q: %v", ErrInvalidPolicy, value, err)
		}
		if w > math.MaxInt64 {
			return fmt.Errorf("%w: maximumWeight %q exceeds %d bytes", ErrInvalidPolicy, value, int64(math.MaxInt64))
		}
		p.MaximumWeight = int64(w)
	case "initialCapacity":
		var n int64
		n, err = parseCount(key, value)
		p.InitialCapacity = int(n)
	case "concurrencyLevel":
		var n int64
		n, err = parseCount(key, value)
		p.ConcurrencyLevel = int(n)
	case "expireAfterWrite":
		p.ExpireAfterWrite, err = parseDuration(key, value)
	case "expireAfterAccess":
		p.ExpireAfterAccess, err = parseDuration(key, value)
	default:
		return fmt.Errorf("%w: unknown key %s", ErrInvalidPolicy, key)
	}
	return err
}

func parseCount(key, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", ErrInvalidPolicy, key, value)
	}
	return n, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if m := guavaDuration.FindStringSubmatch(value); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidPolicy, key, value, err)
		}
		unit := map[string]time.Duration{"d": 24 * time.Hour, "h": time.Hour, "m": time.Minute, "s": time.Second}[m[2]]
		return time.Duration(n) * unit, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s must be a duration such as 10m, got %q", ErrInvalidPolicy, key, value)
	}
	return d, nil
}
