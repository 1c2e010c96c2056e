package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// RegisterHandlers mounts the health endpoints on mux:
//
//	GET /healthz        200 "OK" while the process serves
//	GET /readyz         200 "OK" or "DEGRADED", 503 "UNHEALTHY"
//	GET /health         JSON report of every check
//	GET /health/{name}  JSON result of one check, 404 if unknown
//
// Only an unhealthy status turns into 503.
func RegisterHandlers(mux *http.ServeMux, reg *Registry) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		rep := reg.RunAll(r.Context())
		writeText(w, httpStatus(rep.Status), upper(rep.Status))
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		rep := reg.RunAll(r.Context())
		out := reportJSON{
			Status:    rep.Status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]resultJSON, len(rep.Results)),
		}
		for name, res := range rep.Results {
			out.Checks[name] = toJSON(res)
		}
		writeJSON(w, httpStatus(rep.Status), out)
	})

	mux.HandleFunc("GET /health/{name}", func(w http.ResponseWriter, r *http.Request) {
		res, err := reg.Run(r.Context(), r.PathValue("name"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, httpStatus(res.Status), toJSON(res))
	})
}

type reportJSON struct {
	Status    Status                `json:"status"`
	Timestamp string                `json:"timestamp"`
	Checks    map[string]resultJSON `json:"checks,omitempty"`
}

type resultJSON struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func toJSON(r Result) resultJSON {
	out := resultJSON{
		Status:   r.Status,
		Message:  r.Message,
		Duration: r.Took.String(),
		Details:  r.Details,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func upper(s Status) string {
	switch s {
	case StatusDegraded:
		return "DEGRADED"
	case StatusUnhealthy:
		return "UNHEALTHY"
	}
	return "OK"
}

func httpStatus(s Status) int {
	if s >= StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
