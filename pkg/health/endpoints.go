package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"time"
)

// Readiness states reported by Status.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Status is the aggregated health of the hub's adapters.
type Status struct {
	// Status is "ready", "degraded" or "unhealthy"
	Status string `json:"status"`

	// Providers holds the last probe of each adapter
	Providers map[string]ProviderHealth `json:"providers,omitempty"`

	// Timestamp is when the status was assembled
	Timestamp time.Time `json:"timestamp"`
}

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Status aggregates the last probe results. No probes yet counts as ready;
// some failing adapters is degraded; all failing is unhealthy.
func (m *Monitor) Status() Status {
	snapshot := m.Snapshot()

	healthy := 0
	for _, h := range snapshot {
		if h.Healthy {
			healthy++
		}
	}

	status := StatusReady
	switch {
	case len(snapshot) == 0:
	case healthy == 0:
		status = StatusUnhealthy
	case healthy < len(snapshot):
		status = StatusDegraded
	}

	return Status{Status: status, Providers: snapshot, Timestamp: m.now()}
}

// Unhealthy returns the names of adapters whose last probe failed.
func (s Status) Unhealthy() []string {
	var out []string
	for name, h := range s.Providers {
		if !h.Healthy {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// LivenessHandler returns an HTTP handler for the liveness probe endpoint.
// It only reports that the process is serving.
//
// Example response:
//
//	{
//	    "status": "ok",
//	    "timestamp": "2026-10-19T10:30:00Z"
//	}
func (m *Monitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		writeJSON(w, r, http.StatusOK, Status{Status: StatusOK, Timestamp: m.now()})
	}
}

// ReadinessHandler returns an HTTP handler reporting the aggregated probe
// results.
//
// Returns:
//   - 200 OK: every probed adapter is healthy, or some are (degraded)
//   - 503 Service Unavailable: every probed adapter is failing
func (m *Monitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := m.Status()
		code := http.StatusOK
		if status.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// VersionHandler returns an HTTP handler for the build information endpoint.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}

// Register mounts the health endpoints on mux:
//   - /healthz: liveness
//   - /readyz: readiness
//   - /version: build information
func (m *Monitor) Register(mux *http.ServeMux, version, commit, buildTime string) {
	mux.HandleFunc("/healthz", m.LivenessHandler())
	mux.HandleFunc("/readyz", m.ReadinessHandler())
	mux.HandleFunc("/version", VersionHandler(version, commit, buildTime))
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
