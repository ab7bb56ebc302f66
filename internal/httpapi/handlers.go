package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"

	"centralis.org/internal/domain"
	"centralis.org/internal/obs"
	"centralis.org/internal/rbac"
	"centralis.org/internal/workflow"
)

const serviceName = "centralis-api"

// Workflow is the engine surface the HTTP layer may call. It has no method that
// writes a status directly; every change goes through Perform.
type Workflow interface {
	Create(ctx context.Context, actor string, in domain.Entry) (domain.Entry, error)
	View(ctx context.Context, actor, id string) (workflow.View, error)
	ListViews(ctx context.Context, actor string, filter domain.Filter) ([]workflow.View, error)
	Perform(ctx context.Context, actor, id, action, reason string) (domain.Entry, error)
	Available(ctx context.Context, actor string, entry domain.Entry) ([]workflow.Action, error)
	Stats(ctx context.Context, actor string) (workflow.Stats, error)
	Published(ctx context.Context, kind domain.Kind) ([]domain.Entry, error)
}

// Roles is the role directory surface used by the role administration routes.
type Roles interface {
	Resolve(ctx context.Context, identity string) (rbac.Role, error)
	Assign(ctx context.Context, actor, identity, role string) (rbac.Assignment, error)
	Revoke(ctx context.Context, actor, identity string) error
	List(ctx context.Context, actor string) ([]rbac.Assignment, error)
	Policy() *rbac.Policy
}

// Events is a source of live transition events.
type Events interface {
	Subscribe(ctx context.Context) <-chan workflow.Event
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options tunes the HTTP surface.
type Options struct {
	Version string
	// ExportAPIKey guards /published when non-empty.
	ExportAPIKey string
	// DevTokens enables POST /v1/auth/token.
	DevTokens  bool
	TokenTTL   time.Duration
	RateBurst  int
	RatePerSec rate.Limit
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool
	// Events enables GET /v1/events when set.
	Events Events
}

// API is the HTTP layer.
type API struct {
	router    *httprouter.Router
	workflow  Workflow
	roles     Roles
	readiness readinessChecker
	opts      Options
	handler   http.Handler
}

// New wires routes and middleware.
func New(wf Workflow, roles Roles, readiness readinessChecker, opts Options) *API {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 15 * time.Minute
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if readiness == nil {
		readiness = ReadyProbe{}
	}
	a := &API{
		router:    httprouter.New(),
		workflow:  wf,
		roles:     roles,
		readiness: readiness,
		opts:      opts,
	}
	a.routes()

	var h http.Handler = a.router
	h = RateLimit(h, opts.RateBurst, opts.RatePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	if opts.TrustProxy {
		h = TrustForwardedFor(h)
	}
	a.handler = obs.Instrument(h)
	return a
}

func (a *API) routes() {
	r := a.router
	r.HandleMethodNotAllowed = true
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "not_found", "resource not found")
	})

	r.GET("/healthz", a.healthz)
	r.GET("/readyz", a.ready)
	r.GET("/v1/info", a.info)
	r.Handler(http.MethodGet, "/metrics", obs.Handler())

	if a.opts.DevTokens {
		r.POST("/v1/auth/token", a.handleAuthToken)
	}

	r.GET("/v1/me", a.authed(a.handleMe))
	r.GET("/v1/stats", a.authed(a.handleStats))
	r.GET("/v1/entries", a.authed(a.handleListEntries))
	r.POST("/v1/entries", a.authed(a.handleCreateEntry))
	r.GET("/v1/entries/:id", a.authed(a.handleGetEntry))
	r.GET("/v1/entries/:id/actions", a.authed(a.handleListActions))
	r.POST("/v1/entries/:id/actions", a.authed(a.handlePerformAction))

	if a.opts.Events != nil {
		r.GET("/v1/events", a.authed(a.handleEvents))
	}

	r.GET("/v1/roles", a.authed(a.handleListRoles))
	r.PUT("/v1/roles/:email", a.authed(a.handleAssignRole))
	r.DELETE("/v1/roles/:email", a.authed(a.handleRevokeRole))

	r.GET("/published", a.handlePublished)
}

// Handler returns the fully wrapped handler.
func (a *API) Handler() http.Handler {
	return a.handler
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.opts.Version,
	})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := a.readiness.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) info(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.opts.Version,
	})
}
