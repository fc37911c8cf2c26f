// Package httpapi is the HTTP layer: routing, middleware, request decoding
// and the response envelope. Business rules live in the auth and activity
// packages.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"userdesk.org/internal/activity"
	"userdesk.org/internal/auth"
	"userdesk.org/internal/obs"
)

// ReadyProbe reports whether the service can reach its backing store.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options tune the outer middleware chain.
type Options struct {
	Version      string
	CORSOrigins  []string
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
}

// API wires routes to the auth service and activity recorder.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	rec        *activity.Recorder
	readyProbe ReadyProbe

	version      string
	corsOrigins  []string
	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

func New(svc *auth.Service, rec *activity.Recorder, rp ReadyProbe, opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		svc:          svc,
		rec:          rec,
		readyProbe:   rp,
		version:      opts.Version,
		corsOrigins:  opts.CORSOrigins,
		rateBurst:    opts.RateBurst,
		ratePerSec:   opts.RatePerSec,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 100
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}

	a.mux.HandleFunc("/api/health", a.handleHealth)
	a.mux.HandleFunc("/readyz", a.handleReady)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/register", a.handleRegister)
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/me", a.handleMe)
	a.mux.HandleFunc("/api/auth/change-password", a.handleChangePassword)

	a.mux.HandleFunc("/api/users", a.adminOnly(a.handleUsersCollection))
	a.mux.HandleFunc("/api/users/stats", a.adminOnly(a.handleUserStats))
	a.mux.HandleFunc("/api/users/", a.adminOnly(a.handleUserResource))

	a.mux.HandleFunc("/api/activity", a.adminOnly(a.handleActivityList))
	a.mux.HandleFunc("/api/activity/stats", a.adminOnly(a.handleActivityStats))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler assembles the middleware chain around the mux. Metrics wrap the
// outside so rejected requests are counted too.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "userdesk-api",
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) requestMeta(r *http.Request) *activity.RequestMeta {
	return &activity.RequestMeta{IP: clientIP(r), UserAgent: r.UserAgent()}
}
