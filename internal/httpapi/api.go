package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"hostelpass.org/internal/enrich"
	"hostelpass.org/internal/feed"
	"hostelpass.org/internal/notify"
	"hostelpass.org/internal/obs"
	"hostelpass.org/internal/pass"
)

// ReadyProbe is a simple readiness check (pings the DB when the pg backend
// is in use; the file backend has nothing to probe).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	passes   *pass.Service
	notes    *notify.Service
	enricher enrich.Enricher
	feed     *feed.Feed
}

func New(rp ReadyProbe, version string, passes *pass.Service, notes *notify.Service, enricher enrich.Enricher, fd *feed.Feed) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		passes:     passes,
		notes:      notes,
		enricher:   enricher,
		feed:       fd,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// identity list for the login screen
	a.mux.HandleFunc("/v1/users", a.handleUsers)

	// passes
	a.mux.HandleFunc("/v1/passes", a.handlePassesCollection)
	a.mux.HandleFunc("/v1/passes/", a.handlePassResource)

	// notifications
	a.mux.HandleFunc("/v1/notifications", a.handleNotificationsCollection)
	a.mux.HandleFunc("/v1/notifications/", a.handleNotificationResource)

	// enrichment + export + refresh feed
	a.mux.HandleFunc("/v1/polish", a.handlePolish)
	a.mux.HandleFunc("/v1/export.csv", a.handleExport)
	a.mux.HandleFunc("/v1/feed", a.handleFeed)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = LoggingJSON(h)
	h = RequestID(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

// --- System handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "hostelpass-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "hostelpass-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
