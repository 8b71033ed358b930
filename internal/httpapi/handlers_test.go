package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"audient.app/internal/auth"
	"audient.app/internal/fieldops"
	"audient.app/internal/stream"
)

const testAdminSecret = "admin-secret"

type apiClient struct {
	baseURL string
	client  *http.Client
	issuer  *auth.Issuer
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	// 06:30 UTC is 12:00 in Kolkata, inside the default window.
	now := func() time.Time { return time.Date(2026, time.March, 10, 6, 30, 0, 0, time.UTC) }
	issuer, err := auth.NewIssuer("test-secret", auth.WithClock(now))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	hub := stream.New(8)
	svc := fieldops.NewService(fieldops.NewInMemory(),
		fieldops.WithClock(now),
		fieldops.WithTokenIssuer(issuer),
		fieldops.WithAdminSecret(testAdminSecret),
		fieldops.WithLoginEvents(hub),
	)
	api := New(svc, issuer, WithVersion("test"), WithRateLimit(100, 100), WithLoginStream(hub))

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		issuer:  issuer,
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, token string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPost, path, body, token)
}

func (c *apiClient) get(path string, params url.Values, token string) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, nil, token)
}

func (c *apiClient) expect(resp *http.Response, status int) map[string]any {
	c.t.Helper()
	if resp.StatusCode != status {
		body := decode[map[string]any](c.t, resp)
		c.t.Fatalf("expected %d, got %d: %v", status, resp.StatusCode, body)
	}
	return decode[map[string]any](c.t, resp)
}

func (c *apiClient) registerAdmin(email string) (token, orgID string) {
	c.t.Helper()
	body := c.expect(c.post("/api/auth/register", map[string]any{
		"name": "Admin", "email": email, "password": "secret1",
		"role": "admin", "admin_secret": testAdminSecret, "organization_name": "Acme",
	}, ""), http.StatusCreated)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["organization_id"].(string)
}

func (c *apiClient) registerEmployee(email, orgID string) (token, id string) {
	c.t.Helper()
	body := c.expect(c.post("/api/auth/register", map[string]any{
		"name": "Employee", "email": email, "password": "secret1", "organization_id": orgID,
	}, ""), http.StatusCreated)
	return body["token"].(string), body["user"].(map[string]any)["id"].(string)
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAPILoginFlow(t *testing.T) {
	api := newTestAPI(t)
	_, orgID := api.registerAdmin("boss@acme.test")
	api.registerEmployee("e1@acme.test", orgID)

	body := api.expect(api.post("/api/auth/login", map[string]any{
		"email": "e1@acme.test", "password": "secret1", "latitude": 12.97, "longitude": 77.59,
	}, ""), http.StatusOK)
	if body["period"] != "WorkHours" {
		t.Fatalf("unexpected period: %v", body["period"])
	}
	cfg := body["org_config"].(map[string]any)
	if cfg["login_time"] != "09:00" || cfg["timezone"] != "Asia/Kolkata" {
		t.Fatalf("unexpected org config: %v", cfg)
	}
	token := body["token"].(string)

	me := api.expect(api.get("/api/auth/me", nil, token), http.StatusOK)
	if me["user"].(map[string]any)["email"] != "e1@acme.test" {
		t.Fatalf("unexpected me: %v", me)
	}
	if _, leaked := me["user"].(map[string]any)["password_hash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}

	today := api.expect(api.get("/api/attendance/today", nil, token), http.StatusOK)
	rec, ok := today["attendance"].(map[string]any)
	if !ok || rec["period"] != "WorkHours" || rec["latitude"].(float64) != 12.97 {
		t.Fatalf("unexpected attendance: %v", today)
	}

	resp := api.post("/api/auth/login", map[string]any{"email": "e1@acme.test", "password": "nope!!"}, "")
	api.expect(resp, http.StatusUnauthorized)
}

func TestAPIConfigPatch(t *testing.T) {
	api := newTestAPI(t)
	adminToken, orgID := api.registerAdmin("boss@acme.test")
	empToken, _ := api.registerEmployee("e1@acme.test", orgID)

	body := api.expect(api.do(http.MethodPatch, "/api/config", map[string]any{"login_time": "09:30"}, adminToken), http.StatusOK)
	if body["config"].(map[string]any)["login_time"] != "09:30" {
		t.Fatalf("unexpected config: %v", body)
	}
	got := api.expect(api.get("/api/config", nil, empToken), http.StatusOK)
	if got["config"].(map[string]any)["login_time"] != "09:30" {
		t.Fatalf("employee did not see update: %v", got)
	}

	cases := []struct {
		token  string
		body   map[string]any
		status int
	}{
		{adminToken, map[string]any{}, http.StatusBadRequest},
		{adminToken, map[string]any{"timezone": "Nowhere/City"}, http.StatusBadRequest},
		{adminToken, map[string]any{"logoff_time": "08:00"}, http.StatusBadRequest},
		{adminToken, map[string]any{"bogus": "x"}, http.StatusBadRequest},
		{empToken, map[string]any{"login_time": "08:00"}, http.StatusForbidden},
	}
	for _, tc := range cases {
		resp := api.do(http.MethodPatch, "/api/config", tc.body, tc.token)
		errBody := api.expect(resp, tc.status)
		if errBody["error"] == "" {
			t.Fatalf("expected error message for %v", tc.body)
		}
	}
}

func TestAPILocations(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.registerEmployee("e1@acme.test", "")
	other, _ := api.registerEmployee("e2@acme.test", "")

	body := api.expect(api.post("/api/locations", map[string]any{
		"name": "Home base", "type": "base", "address": "1 Main St",
	}, token), http.StatusCreated)
	id := body["profile"].(map[string]any)["id"].(string)

	api.expect(api.post("/api/locations", map[string]any{
		"name": "Second", "type": "base", "address": "2 Main St",
	}, token), http.StatusConflict)

	list := api.expect(api.get("/api/locations", nil, token), http.StatusOK)
	if n := len(list["profiles"].([]any)); n != 1 {
		t.Fatalf("expected 1 profile, got %d", n)
	}

	api.expect(api.do(http.MethodDelete, "/api/locations/"+id, nil, other), http.StatusNotFound)
	api.expect(api.do(http.MethodDelete, "/api/locations/"+id, nil, token), http.StatusOK)
}

func TestAPISentry(t *testing.T) {
	api := newTestAPI(t)
	adminToken, orgID := api.registerAdmin("boss@acme.test")
	empToken, empID := api.registerEmployee("e1@acme.test", orgID)
	api.expect(api.post("/api/auth/login", map[string]any{"email": "e1@acme.test", "password": "secret1"}, ""), http.StatusOK)

	body := api.expect(api.get("/api/sentry/employees", nil, adminToken), http.StatusOK)
	emps := body["employees"].([]any)
	if len(emps) != 2 {
		t.Fatalf("expected 2 members, got %d", len(emps))
	}
	first := emps[0].(map[string]any)
	if first["id"] != empID || first["status"] != "Active" {
		t.Fatalf("unexpected first employee: %v", first)
	}

	byDate := api.expect(api.get("/api/sentry/attendance/by-date", url.Values{"date": {"2026-03-10"}}, adminToken), http.StatusOK)
	if len(byDate["records"].([]any)) != 1 {
		t.Fatalf("unexpected records: %v", byDate)
	}
	api.expect(api.get("/api/sentry/attendance/by-date", nil, adminToken), http.StatusBadRequest)

	month := api.expect(api.get("/api/sentry/attendance/month-summary", url.Values{"year": {"2026"}, "month": {"3"}}, adminToken), http.StatusOK)
	days := month["days"].([]any)
	if len(days) != 1 || days[0].(map[string]any)["logins"].(float64) != 1 {
		t.Fatalf("unexpected month summary: %v", month)
	}

	hist := api.expect(api.get("/api/sentry/employees/"+empID+"/attendance", nil, adminToken), http.StatusOK)
	if len(hist["attendance"].([]any)) != 1 {
		t.Fatalf("unexpected history: %v", hist)
	}

	api.expect(api.get("/api/sentry/employees", nil, empToken), http.StatusForbidden)
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	for _, token := range []string{"", "not-a-token"} {
		resp := api.get("/api/auth/me", nil, token)
		errBody := api.expect(resp, http.StatusUnauthorized)
		if errBody["error"] == "" {
			t.Fatalf("expected error message")
		}
	}
}

func TestAPIRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	api.expect(api.post("/api/auth/register", map[string]any{"email": "x@y.z"}, ""), http.StatusBadRequest)
	api.expect(api.post("/api/auth/register", map[string]any{
		"name": "A", "email": "a@y.z", "password": "secret1", "role": "admin", "admin_secret": "wrong", "organization_name": "O",
	}, ""), http.StatusForbidden)
	api.registerEmployee("dup@y.z", "")
	api.expect(api.post("/api/auth/register", map[string]any{"name": "B", "email": "dup@y.z", "password": "secret1"}, ""), http.StatusConflict)
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t)
	health := api.expect(api.get("/healthz", nil, ""), http.StatusOK)
	if health["version"] != "test" {
		t.Fatalf("unexpected health: %v", health)
	}
	api.expect(api.get("/readyz", nil, ""), http.StatusOK)
	api.expect(api.get("/nope", nil, ""), http.StatusNotFound)
}

func TestAPILoginStream(t *testing.T) {
	api := newTestAPI(t)
	adminToken, orgID := api.registerAdmin("boss@acme.test")
	empToken, empID := api.registerEmployee("e1@acme.test", orgID)

	api.expect(api.get("/api/sentry/stream", nil, empToken), http.StatusForbidden)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseURL+"/api/sentry/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := api.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	// The preamble is flushed after the subscription is registered.
	if first := <-lines; !strings.HasPrefix(first, ": stream started") {
		t.Fatalf("unexpected preamble %q", first)
	}

	api.expect(api.post("/api/auth/login", map[string]any{"email": "e1@acme.test", "password": "secret1"}, ""), http.StatusOK)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed early")
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var evt stream.LoginEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if evt.UserID != empID || evt.Status != fieldops.StatusActive {
				t.Fatalf("unexpected event: %+v", evt)
			}
			return
		case <-timeout:
			t.Fatal("no login event on stream")
		}
	}
}

func TestAPILoginStreamRechecksStoredRole(t *testing.T) {
	api := newTestAPI(t)
	_, orgID := api.registerAdmin("boss@acme.test")
	_, empID := api.registerEmployee("e1@acme.test", orgID)

	// A token still claiming admin for a user whose stored role is employee.
	stale, _, err := api.issuer.Generate(auth.Principal{
		UserID: empID, Email: "e1@acme.test", Role: auth.RoleAdmin, OrganizationID: orgID,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	api.expect(api.get("/api/sentry/stream", nil, stale), http.StatusForbidden)
}

func TestAPIClients(t *testing.T) {
	api := newTestAPI(t)
	_, orgID := api.registerAdmin("boss@acme.test")
	token, _ := api.registerEmployee("e1@acme.test", orgID)
	otherToken, _ := api.registerEmployee("e2@acme.test", orgID)

	api.expect(api.get("/api/clients", nil, ""), http.StatusUnauthorized)
	api.expect(api.post("/api/clients", map[string]any{"client_name": "Tata"}, token), http.StatusBadRequest)

	body := api.expect(api.post("/api/clients", map[string]any{
		"client_name": "Tata Steel", "client_code": "TS-01", "client_tier": "Strategic",
	}, token), http.StatusCreated)
	client := body["client"].(map[string]any)
	id := client["id"].(string)
	if client["engagement_health"] != "Neutral" || client["is_active"] != true || client["client_tier"] != "Strategic" {
		t.Fatalf("unexpected client: %v", client)
	}
	api.expect(api.post("/api/clients", map[string]any{"client_name": "Dup", "client_code": "TS-01"}, otherToken), http.StatusConflict)

	list := api.expect(api.get("/api/clients", nil, token), http.StatusOK)
	if n := len(list["clients"].([]any)); n != 1 {
		t.Fatalf("expected one client, got %d", n)
	}
	api.expect(api.get("/api/clients/"+id, nil, otherToken), http.StatusNotFound)

	patched := api.expect(api.do(http.MethodPatch, "/api/clients/"+id, map[string]any{"engagement_health": "Good"}, token), http.StatusOK)
	if patched["client"].(map[string]any)["engagement_health"] != "Good" {
		t.Fatalf("patch not applied: %v", patched)
	}
	api.expect(api.do(http.MethodPatch, "/api/clients/"+id, map[string]any{"client_code": "NEW"}, token), http.StatusBadRequest)

	st := api.expect(api.post("/api/clients/"+id+"/stakeholders", map[string]any{
		"contact_name": "Meera", "designation_role": "CFO",
	}, token), http.StatusCreated)
	stID := st["stakeholder"].(map[string]any)["id"].(string)
	api.expect(api.post("/api/clients/"+id+"/stakeholders", map[string]any{"contact_name": "X"}, otherToken), http.StatusNotFound)

	contacts := api.expect(api.get("/api/clients/"+id+"/stakeholders", nil, token), http.StatusOK)
	if n := len(contacts["stakeholders"].([]any)); n != 1 {
		t.Fatalf("expected one stakeholder, got %d", n)
	}
	api.expect(api.do(http.MethodDelete, "/api/clients/"+id+"/stakeholders/"+stID, nil, token), http.StatusOK)
	api.expect(api.do(http.MethodDelete, "/api/clients/"+id+"/stakeholders/"+stID, nil, token), http.StatusNotFound)

	deleted := api.expect(api.do(http.MethodDelete, "/api/clients/"+id, nil, token), http.StatusOK)
	if deleted["deleted"] != true {
		t.Fatalf("unexpected delete response: %v", deleted)
	}
	api.expect(api.get("/api/clients/"+id, nil, token), http.StatusNotFound)
}

func TestAPIRecordings(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.registerEmployee("e1@acme.test", "")
	otherToken, _ := api.registerEmployee("e2@acme.test", "")

	api.expect(api.post("/api/recordings", map[string]any{"duration_seconds": -5}, token), http.StatusBadRequest)
	body := api.expect(api.post("/api/recordings", map[string]any{
		"transcript": "met the CFO", "duration_seconds": 95,
	}, token), http.StatusCreated)
	rec := body["recording"].(map[string]any)
	id := rec["id"].(string)
	if rec["duration_seconds"].(float64) != 95 {
		t.Fatalf("unexpected recording: %v", rec)
	}

	list := api.expect(api.get("/api/recordings", nil, token), http.StatusOK)
	if n := len(list["recordings"].([]any)); n != 1 {
		t.Fatalf("expected one recording, got %d", n)
	}
	api.expect(api.get("/api/recordings/"+id, nil, otherToken), http.StatusNotFound)
	api.expect(api.get("/api/recordings/"+id, nil, token), http.StatusOK)
	api.expect(api.do(http.MethodDelete, "/api/recordings/"+id, nil, token), http.StatusOK)
	api.expect(api.get("/api/recordings/"+id, nil, token), http.StatusNotFound)
}
