package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hostelpass.org/internal/enrich"
	"hostelpass.org/internal/feed"
	"hostelpass.org/internal/notify"
	"hostelpass.org/internal/pass"
	"hostelpass.org/internal/store"
)

type staticEnricher struct{}

func (staticEnricher) Summarize(_ context.Context, reason string, _ int) enrich.Annotation {
	return enrich.Annotation{Summary: "summary of " + reason, Risk: enrich.RiskLow}
}

func (staticEnricher) Polish(_ context.Context, raw string) string {
	return "polished: " + raw
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	fs, err := store.OpenFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	notes := notify.NewService(fs)
	passes := pass.NewService(fs, notes, staticEnricher{})
	api := New(ReadyProbe{}, "test", passes, notes, staticEnricher{}, feed.New())

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, userID string) *http.Response {
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
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
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

func createBody() createPassRequest {
	dep := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	return createPassRequest{
		Kind:        "HOME_VISIT",
		Reason:      "family function",
		Destination: "Jaipur",
		DepartureAt: dep,
		ReturnAt:    dep.AddDate(0, 0, 3),
	}
}

func TestHealthz(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodGet, "/healthz", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUsersListsMockIdentities(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodGet, "/v1/users", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("users status %d", resp.StatusCode)
	}
	users := decode[[]map[string]any](t, resp)
	if len(users) != 3 {
		t.Fatalf("expected 3 identities, got %d", len(users))
	}
}

func TestPassApprovalFlow(t *testing.T) {
	c := newTestAPI(t)

	resp := c.do(http.MethodPost, "/v1/passes", createBody(), "s1")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "/v1/passes/") {
		t.Fatalf("missing Location header: %q", loc)
	}
	created := decode[pass.Pass](t, resp)
	if created.Status != pass.StatusPending {
		t.Fatalf("created status = %s", created.Status)
	}

	// The warden sees the new request in the role view.
	resp = c.do(http.MethodGet, "/v1/passes", nil, "w1")
	list := decode[listPassesResponse](t, resp)
	if len(list.Items) != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("warden view wrong: %#v", list.Items)
	}

	// Another student does not.
	resp = c.do(http.MethodGet, "/v1/passes", nil, "s2")
	list = decode[listPassesResponse](t, resp)
	if len(list.Items) != 0 {
		t.Fatalf("s2 must not see s1's passes: %#v", list.Items)
	}

	// Warden pool got notified.
	resp = c.do(http.MethodGet, "/v1/notifications", nil, "w1")
	wn := decode[listNotificationsResponse](t, resp)
	if wn.Unread != 1 || len(wn.Items) != 1 {
		t.Fatalf("warden notifications wrong: %#v", wn)
	}

	// Approve.
	resp = c.do(http.MethodPost, "/v1/passes/"+created.ID+"/status", setStatusRequest{Status: "APPROVED"}, "w1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d", resp.StatusCode)
	}
	approved := decode[pass.Pass](t, resp)
	if approved.Status != pass.StatusApproved || !approved.Stages.ChiefWarden {
		t.Fatalf("approval result wrong: %#v", approved)
	}

	// The requester has an unread success notification naming the destination.
	resp = c.do(http.MethodGet, "/v1/notifications", nil, "s1")
	sn := decode[listNotificationsResponse](t, resp)
	if sn.Unread != 1 || len(sn.Items) != 1 {
		t.Fatalf("student notifications wrong: %#v", sn)
	}
	if sn.Items[0].Category != notify.CategorySuccess || !strings.Contains(sn.Items[0].Message, "Jaipur") {
		t.Fatalf("unexpected notification: %#v", sn.Items[0])
	}

	// Mark read, twice: idempotent, both 204.
	for i := 0; i < 2; i++ {
		resp = c.do(http.MethodPost, "/v1/notifications/"+sn.Items[0].ID+"/read", nil, "s1")
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("mark read status %d", resp.StatusCode)
		}
		resp.Body.Close()
	}
	resp = c.do(http.MethodGet, "/v1/notifications", nil, "s1")
	sn = decode[listNotificationsResponse](t, resp)
	if sn.Unread != 0 {
		t.Fatalf("expected zero unread, got %d", sn.Unread)
	}
}

func TestCreateRequiresKnownUser(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodPost, "/v1/passes", createBody(), "ghost")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown user, got %d", resp.StatusCode)
	}
}

func TestCreateRejectsBadKind(t *testing.T) {
	c := newTestAPI(t)
	body := createBody()
	body.Kind = "WEEKEND"
	resp := c.do(http.MethodPost, "/v1/passes", body, "s1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad kind, got %d", resp.StatusCode)
	}
}

func TestSetStatusUnknownIDIs404(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodPost, "/v1/passes/01NOPE/status", setStatusRequest{Status: "APPROVED"}, "w1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSetStatusRejectsBadTarget(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodPost, "/v1/passes/01NOPE/status", setStatusRequest{Status: "CLOSED"}, "w1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPolishEndpoint(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodPost, "/v1/polish", polishRequest{Reason: "going home"}, "s1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("polish status %d", resp.StatusCode)
	}
	body := decode[polishResponse](t, resp)
	if body.Reason != "polished: going home" {
		t.Fatalf("unexpected polish result: %q", body.Reason)
	}
}

func TestExportEndpointEmptyIsHeaderOnly(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodGet, "/v1/export.csv", nil, "w1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type %q", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "ID,Date Created,") {
		t.Fatalf("expected header only, got %q", buf.String())
	}
}

func TestRequestIDEchoedAndInErrors(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodGet, "/v1/passes", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without viewer header, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header")
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if rid, ok := body["request_id"].(string); !ok || rid == "" {
		t.Fatal("expected request_id in error payload")
	}
}
