package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audient_ready",
		Help: "1 when the last readiness probe succeeded.",
	})
)

// Domain metrics.
var (
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audient_logins_total",
			Help: "Successful logins by work-hours period.",
		},
		[]string{"period"},
	)

	attendanceFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audient_attendance_failures_total",
		Help: "Attendance records that could not be written during login.",
	})

	configUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audient_config_updates_total",
		Help: "Organization work-hours updates applied.",
	})

	forcedLogouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audient_forced_logouts_total",
		Help: "Sessions forced out by the work-hours watchdog.",
	})

	watchdogTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audient_watchdog_ticks_total",
		Help: "Work-hours watchdog evaluations.",
	})

	sessionRestores = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audient_session_restores_total",
			Help: "Cold-start session restore decisions.",
		},
		[]string{"decision"},
	)
)

var initOnce sync.Once

// InitMetrics registers all metrics in the default registry. Safe to call repeatedly.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration, readyGauge,
			loginsTotal, attendanceFailures, configUpdates,
			forcedLogouts, watchdogTicks, sessionRestores,
		)
	})
}

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the outcome of the latest readiness probe.
func SetReady(ok bool) {
	if ok {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

func ObserveLogin(period string) {
	if period == "" {
		period = "unknown"
	}
	loginsTotal.WithLabelValues(period).Inc()
}

func ObserveAttendanceFailure() { attendanceFailures.Inc() }

func ObserveConfigUpdate() { configUpdates.Inc() }

func ObserveForcedLogout() { forcedLogouts.Inc() }

func ObserveWatchdogTick() { watchdogTicks.Inc() }

func ObserveRestore(decision string) {
	sessionRestores.WithLabelValues(decision).Inc()
}

// Instrument records RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses identifiers so label cardinality stays bounded.
func CanonicalPath(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" || raw == "/" {
		return "/"
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "api" && (parts[1] == "locations" || parts[1] == "clients" || parts[1] == "recordings"):
		parts[2] = ":id"
	case len(parts) >= 4 && len(parts) <= 5 && parts[0] == "api" && parts[1] == "clients" && parts[3] == "stakeholders":
		parts[2] = ":id"
		if len(parts) == 5 {
			parts[4] = ":stakeholder"
		}
	case len(parts) == 5 && parts[0] == "api" && parts[1] == "sentry" && parts[2] == "employees" && parts[4] == "attendance":
		parts[3] = ":id"
	}
	return "/" + strings.Join(parts, "/")
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
