package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"audient.app/internal/auth"
	"audient.app/internal/fieldops"
	"audient.app/internal/obs"
	"audient.app/internal/stream"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	ParseAndValidate(token string) (*auth.Claims, error)
}

// ReadyProbe checks the backing services the API depends on.
type ReadyProbe struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// API is the HTTP layer.
type API struct {
	svc         *fieldops.Service
	tokens      TokenVerifier
	readyProbe  ReadyProbe
	stream      *stream.Hub
	version     string
	log         *zap.Logger
	rateBurst   int
	ratePerSec  float64
	maxBody     int64
	corsOrigins []string
}

// Option configures API.
type Option func(*API)

func WithReadyProbe(rp ReadyProbe) Option { return func(a *API) { a.readyProbe = rp } }

// WithLoginStream enables GET /api/sentry/stream.
func WithLoginStream(h *stream.Hub) Option { return func(a *API) { a.stream = h } }

func WithVersion(v string) Option { return func(a *API) { a.version = v } }

func WithLogger(l *zap.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// WithRateLimit sets the per-IP token bucket.
func WithRateLimit(burst int, perSecond float64) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSecond
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(a *API) {
		if len(origins) > 0 {
			a.corsOrigins = origins
		}
	}
}

func New(svc *fieldops.Service, tokens TokenVerifier, opts ...Option) *API {
	a := &API{
		svc:         svc,
		tokens:      tokens,
		version:     "dev",
		rateBurst:   20,
		ratePerSec:  10,
		maxBody:     1 << 20,
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = obs.Logger().Named("http")
	}
	return a
}

// Handler builds the router with the full middleware stack.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(auditRequestID)
	r.Use(Logging(a.log))
	r.Use(middleware.Recoverer)
	r.Use(obs.Instrument)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         600,
	}))
	r.Use(MaxBodyBytes(a.maxBody))
	r.Use(RateLimit(a.rateBurst, a.ratePerSec))

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", a.register)
		r.Post("/auth/login", a.login)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)
			r.Get("/auth/me", a.me)
			r.Get("/config", a.getConfig)
			r.Patch("/config", a.patchConfig)
			r.Get("/attendance/today", a.todayAttendance)
			r.Post("/locations", a.createLocation)
			r.Get("/locations", a.listLocations)
			r.Delete("/locations/{id}", a.deleteLocation)

			r.Route("/clients", func(r chi.Router) {
				r.Post("/", a.createClient)
				r.Get("/", a.listClients)
				r.Get("/{id}", a.getClient)
				r.Patch("/{id}", a.patchClient)
				r.Delete("/{id}", a.deleteClient)
				r.Post("/{id}/stakeholders", a.createStakeholder)
				r.Get("/{id}/stakeholders", a.listStakeholders)
				r.Delete("/{id}/stakeholders/{stakeholderID}", a.deleteStakeholder)
			})
			r.Route("/recordings", func(r chi.Router) {
				r.Post("/", a.createRecording)
				r.Get("/", a.listRecordings)
				r.Get("/{id}", a.getRecording)
				r.Delete("/{id}", a.deleteRecording)
			})

			r.Route("/sentry", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/employees", a.employees)
				r.Get("/employees/{id}/attendance", a.employeeAttendance)
				r.Get("/attendance/by-date", a.attendanceByDate)
				r.Get("/attendance/month-summary", a.monthSummary)
				r.Get("/stream", a.loginStream)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "audient-api",
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
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

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// handleServiceError maps domain errors onto HTTP statuses.
func (a *API) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	msg := err.Error()
	var fe *fieldops.Error
	if errors.As(err, &fe) {
		msg = fe.Msg
	}
	switch {
	case errors.Is(err, fieldops.ErrInvalidInput), errors.Is(err, fieldops.ErrNoOrganization):
		writeError(w, r, http.StatusBadRequest, msg)
	case errors.Is(err, fieldops.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, msg)
	case errors.Is(err, fieldops.ErrForbidden):
		writeError(w, r, http.StatusForbidden, msg)
	case errors.Is(err, fieldops.ErrNotFound):
		if fe == nil {
			msg = "not found"
		}
		writeError(w, r, http.StatusNotFound, msg)
	case errors.Is(err, fieldops.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, msg)
	default:
		a.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func trimmedQuery(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
