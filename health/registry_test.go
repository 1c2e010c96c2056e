package health

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func static(name string, r Result) Checker {
	return CheckFunc(name, func(context.Context) Result { return r })
}

func TestStatus_String(t *testing.T) {
	for s, want := range map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(-1):      "unknown",
		Status(9):       "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("Status(%d) = %q, want %q", int(s), got, want)
		}
	}
}

func TestNewRegistry_DefaultTimeout(t *testing.T) {
	if got := NewRegistry(-time.Second).timeout; got != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", got, DefaultTimeout)
	}
}

func TestRegistry_AddReplacesByName(t *testing.T) {
	reg := NewRegistry(0)
	reg.Add(static("store", Unhealthy("down", nil)))
	reg.Add(static("schema", Healthy("")))
	reg.Add(static("store", Healthy("back")))

	if got, want := reg.Names(), []string{"store", "schema"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	res, err := reg.Run(context.Background(), "store")
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "back" {
		t.Errorf("Message = %q, want the replacement", res.Message)
	}
}

func TestRegistry_RunUnknown(t *testing.T) {
	_, err := NewRegistry(0).Run(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownCheck) {
		t.Errorf("Run() = %v, want ErrUnknownCheck", err)
	}
}

func TestRegistry_RunAllWorstStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Result{Healthy(""), Healthy("")}, StatusHealthy},
		{"one degraded", []Result{Healthy(""), Degraded("")}, StatusDegraded},
		{"one unhealthy", []Result{Degraded(""), Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(0)
			for i, r := range tt.results {
				reg.Add(static(string(rune('a'+i)), r))
			}
			rep := reg.RunAll(context.Background())
			if rep.Status != tt.want {
				t.Errorf("Status = %v, want %v", rep.Status, tt.want)
			}
			if len(rep.Results) != len(tt.results) {
				t.Errorf("len(Results) = %d, want %d", len(rep.Results), len(tt.results))
			}
		})
	}
}

func TestRegistry_RunAllTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	reg := NewRegistry(20 * time.Millisecond)
	reg.Add(static("fast", Healthy("ok")))
	reg.Add(CheckFunc("stuck", func(context.Context) Result {
		<-release
		return Healthy("late")
	}))

	rep := reg.RunAll(context.Background())
	stuck := rep.Results["stuck"]
	if stuck.Status != StatusUnhealthy || !errors.Is(stuck.Err, ErrCheckTimeout) {
		t.Errorf("stuck = %+v, want unhealthy with ErrCheckTimeout", stuck)
	}
	if rep.Results["fast"].Status != StatusHealthy {
		t.Errorf("fast = %+v, want healthy", rep.Results["fast"])
	}
	if rep.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", rep.Status)
	}
}

func TestRegistry_StampsResults(t *testing.T) {
	reg := NewRegistry(0)
	reg.Add(static("a", Healthy("")))

	before := time.Now()
	res, err := reg.Run(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if res.At.Before(before) || res.Took < 0 {
		t.Errorf("At = %v Took = %v, want stamped by Run", res.At, res.Took)
	}
}
