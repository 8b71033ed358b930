package obs

import (
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                      "/",
		"/metrics":                              "/metrics",
		"/api/locations":                        "/api/locations",
		"/api/locations/01HZX3":                 "/api/locations/:id",
		"/api/locations/01HZX3/extra":           "/api/locations/01HZX3/extra",
		"/api/sentry/employees":                 "/api/sentry/employees",
		"/api/sentry/employees/42/attendance":   "/api/sentry/employees/:id/attendance",
		"/api/sentry/attendance/by-date?date=x": "/api/sentry/attendance/by-date",
		"/api/config":                           "/api/config",
		"/api/clients":                          "/api/clients",
		"/api/clients/01J0C1":                   "/api/clients/:id",
		"/api/clients/01J0C1/stakeholders":      "/api/clients/:id/stakeholders",
		"/api/clients/01J0C1/stakeholders/01J0": "/api/clients/:id/stakeholders/:stakeholder",
		"/api/recordings/01J0R1":                "/api/recordings/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestObserveLoginLabelsUnknownPeriod(t *testing.T) {
	before := testutil.ToFloat64(loginsTotal.WithLabelValues("unknown"))
	ObserveLogin("")
	if got := testutil.ToFloat64(loginsTotal.WithLabelValues("unknown")); got != before+1 {
		t.Fatalf("expected unknown counter to advance, got %v -> %v", before, got)
	}
}

func TestInitBuildInfoDefaultsLabels(t *testing.T) {
	InitBuildInfo("", "")
	InitBuildInfo("1.2.0", "abc123")
	if got := testutil.ToFloat64(audientBuild.WithLabelValues("dev", "unknown", runtime.Version())); got != 1 {
		t.Fatalf("expected default-labelled build gauge to be 1, got %v", got)
	}
	if got := testutil.ToFloat64(audientBuild.WithLabelValues("1.2.0", "abc123", runtime.Version())); got != 1 {
		t.Fatalf("expected build gauge to be 1, got %v", got)
	}
	if testutil.ToFloat64(audientStarted) <= 0 {
		t.Fatal("expected start time to be set")
	}
}
