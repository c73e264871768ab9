// Package health exposes process liveness and usage information.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Runtime holds process-lifetime counters. It is created once at startup.
type Runtime struct {
	server    string
	version   string
	startedAt time.Time
	requests  atomic.Int64
	now       func() time.Time
}

// NewRuntime starts the uptime clock.
func NewRuntime(server, version string) *Runtime {
	return &Runtime{server: server, version: version, startedAt: time.Now(), now: time.Now}
}

// Uptime returns the time since start.
func (rt *Runtime) Uptime() time.Duration {
	return rt.now().Sub(rt.startedAt)
}

// Requests returns the number of requests served so far.
func (rt *Runtime) Requests() int64 {
	return rt.requests.Load()
}

// Middleware counts every request passing through it.
func (rt *Runtime) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

// Memory is a subset of runtime.MemStats in bytes.
type Memory struct {
	Sys       uint64 `json:"sys"`
	HeapAlloc uint64 `json:"heapAlloc"`
	HeapSys   uint64 `json:"heapSys"`
	StackSys  uint64 `json:"stackSys"`
	NumGC     uint32 `json:"numGC"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Server    string    `json:"server"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
	Memory    Memory    `json:"memory"`
	Requests  int64     `json:"requests"`
}

// PingResponse is the body of GET /ping.
type PingResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Uptime    float64   `json:"uptime"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Online    bool              `json:"online"`
	LastPing  time.Time         `json:"lastPing"`
	URL       string            `json:"url"`
	Endpoints map[string]string `json:"endpoints"`
}

// Health handles GET /health.
func (rt *Runtime) Health(w http.ResponseWriter, _ *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Server:    rt.server,
		Version:   rt.version,
		Timestamp: rt.now().UTC(),
		Uptime:    rt.Uptime().Seconds(),
		Memory: Memory{
			Sys:       ms.Sys,
			HeapAlloc: ms.HeapAlloc,
			HeapSys:   ms.HeapSys,
			StackSys:  ms.StackSys,
			NumGC:     ms.NumGC,
		},
		Requests: rt.Requests(),
	})
}

// Ping handles GET /ping.
func (rt *Runtime) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PingResponse{
		Status:    "alive",
		Timestamp: rt.now().UTC(),
		Message:   rt.server + " Online",
		Uptime:    rt.Uptime().Seconds(),
	})
}

// Status handles GET /status.
func (rt *Runtime) Status(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Online:   true,
		LastPing: rt.now().UTC(),
		URL:      scheme + "://" + r.Host,
		Endpoints: map[string]string{
			"ping":   "/ping",
			"health": "/health",
			"main":   "/",
			"api":    "/api/data",
		},
	})
}

// Live handles GET /health/live.
func Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready returns a GET /health/ready handler that fails with 503 while check fails.
func Ready(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				slog.Warn("readiness check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}
