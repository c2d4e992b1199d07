package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ticketforge/hold-engine/internal/adapters/memory"
	"github.com/ticketforge/hold-engine/internal/catalog"
	"github.com/ticketforge/hold-engine/internal/clock"
	"github.com/ticketforge/hold-engine/internal/events"
	"github.com/ticketforge/hold-engine/internal/hold"
	enginehttp "github.com/ticketforge/hold-engine/internal/http"
	"github.com/ticketforge/hold-engine/internal/idempotency"
	"github.com/ticketforge/hold-engine/internal/ledger"
	"github.com/ticketforge/hold-engine/internal/observability"
)

type api struct {
	server *httptest.Server
	clock  *clock.Fixed
}

func newAPI(t *testing.T) *api {
	t.Helper()

	store := memory.NewStore()
	clk := clock.NewFixed(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	led := ledger.New(store)
	idem := idempotency.NewRunner(memory.NewIdempotencyStore(24*time.Hour), observability.NewLogger())
	logger := observability.NewLogger()

	manager := hold.NewManager(store, store, led, idem, events.Nop{}, clk, logger, 5*time.Minute)
	confirm := hold.NewConfirmService(store, led, idem, events.Nop{}, clk, logger)
	catalogSvc := catalog.NewService(store, led, clk)

	h := enginehttp.NewHandlers(catalogSvc, manager, confirm)
	srv := httptest.NewServer(enginehttp.SetupRouter(h, logger, nil))
	t.Cleanup(srv.Close)

	return &api{server: srv, clock: clk}
}

func (a *api) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (a *api) seed(t *testing.T, capacity int) (eventID, zoneID string) {
	t.Helper()

	resp, body := a.do(t, http.MethodPost, "/v1/events", map[string]any{"name": "show"}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event: status %d body %v", resp.StatusCode, body)
	}
	eventID = body["id"].(string)

	resp, body = a.do(t, http.MethodPost, "/v1/events/"+eventID+"/zones",
		map[string]any{"name": "floor", "capacity": capacity}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create zone: status %d body %v", resp.StatusCode, body)
	}
	zoneID = body["id"].(string)
	return eventID, zoneID
}

func holdBody(eventID, zoneID string, qty int, key string) map[string]any {
	return map[string]any{
		"event_id":        eventID,
		"zone_id":         zoneID,
		"quantity":        qty,
		"idempotency_key": key,
	}
}

func TestAPI_HoldLifecycle(t *testing.T) {
	a := newAPI(t)
	eventID, zoneID := a.seed(t, 5)

	// Reserve 3 of 5.
	resp, body := a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 3, "key-a"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create hold: status %d body %v", resp.StatusCode, body)
	}
	holdID := body["id"].(string)
	if body["status"] != "active" {
		t.Errorf("hold status = %v, want active", body["status"])
	}

	// Replay with the same key returns the same hold.
	resp, body = a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 3, "key-a"), nil)
	if resp.StatusCode != http.StatusCreated || body["id"] != holdID {
		t.Errorf("replay: status %d id %v, want %s", resp.StatusCode, body["id"], holdID)
	}

	// The remaining 2 cannot satisfy a hold for 3.
	resp, body = a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 3, "key-b"), nil)
	if resp.StatusCode != http.StatusConflict || body["code"] != "capacity_exceeded" {
		t.Errorf("over-capacity hold: status %d body %v", resp.StatusCode, body)
	}

	// Confirm; the key travels in the header on this route.
	resp, body = a.do(t, http.MethodPost, "/v1/holds/"+holdID+"/confirm", nil,
		map[string]string{"Idempotency-Key": "confirm-a"})
	if resp.StatusCode != http.StatusOK || body["status"] != "confirmed" {
		t.Fatalf("confirm: status %d body %v", resp.StatusCode, body)
	}

	resp, body = a.do(t, http.MethodGet, "/v1/holds/"+holdID, nil, nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "confirmed" {
		t.Errorf("get hold: status %d body %v", resp.StatusCode, body)
	}

	// Zone listing reflects the consumed capacity.
	req, err := http.NewRequest(http.MethodGet, a.server.URL+"/v1/events/"+eventID+"/zones", nil)
	if err != nil {
		t.Fatal(err)
	}
	zresp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer zresp.Body.Close()
	var zones []map[string]any
	if err := json.NewDecoder(zresp.Body).Decode(&zones); err != nil {
		t.Fatal(err)
	}
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	if zones[0]["confirmed"] != float64(3) || zones[0]["available"] != float64(2) {
		t.Errorf("zone counters: %v", zones[0])
	}
}

func TestAPI_ConfirmRequiresHeader(t *testing.T) {
	a := newAPI(t)
	eventID, zoneID := a.seed(t, 5)

	resp, body := a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 1, "key-a"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatal("create hold failed")
	}
	holdID := body["id"].(string)

	resp, body = a.do(t, http.MethodPost, "/v1/holds/"+holdID+"/confirm", nil, nil)
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "idempotency_key_required" {
		t.Errorf("confirm without header: status %d body %v", resp.StatusCode, body)
	}
}

func TestAPI_Release(t *testing.T) {
	a := newAPI(t)
	eventID, zoneID := a.seed(t, 5)

	resp, body := a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 4, "key-a"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatal("create hold failed")
	}
	holdID := body["id"].(string)

	resp, body = a.do(t, http.MethodPost, "/v1/holds/"+holdID+"/release", nil, nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "released" {
		t.Fatalf("release: status %d body %v", resp.StatusCode, body)
	}

	resp, body = a.do(t, http.MethodPost, "/v1/holds/"+holdID+"/release", nil, nil)
	if resp.StatusCode != http.StatusConflict || body["code"] != "invalid_hold_state" {
		t.Errorf("double release: status %d body %v", resp.StatusCode, body)
	}

	// The released quantity is reservable again.
	resp, _ = a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 5, "key-b"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("reserve after release: status %d", resp.StatusCode)
	}
}

func TestAPI_ConfirmExpiredHold(t *testing.T) {
	a := newAPI(t)
	eventID, zoneID := a.seed(t, 5)

	resp, body := a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 2, "key-a"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatal("create hold failed")
	}
	holdID := body["id"].(string)

	a.clock.Advance(10 * time.Minute)

	resp, body = a.do(t, http.MethodPost, "/v1/holds/"+holdID+"/confirm", nil,
		map[string]string{"Idempotency-Key": "confirm-a"})
	if resp.StatusCode != http.StatusConflict || body["code"] != "hold_expired" {
		t.Errorf("confirm expired: status %d body %v", resp.StatusCode, body)
	}
}

func TestAPI_Errors(t *testing.T) {
	a := newAPI(t)
	eventID, zoneID := a.seed(t, 5)

	cases := []struct {
		name       string
		method     string
		path       string
		body       any
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{"unknown hold", http.MethodGet, "/v1/holds/nope", nil, nil, http.StatusNotFound, "hold_not_found"},
		{"unknown zone", http.MethodPost, "/v1/holds", holdBody(eventID, "nope", 1, "k"), nil, http.StatusNotFound, "zone_not_found"},
		{"zero quantity", http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 0, "k"), nil, http.StatusBadRequest, "invalid_quantity"},
		{"missing key", http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 1, ""), nil, http.StatusBadRequest, "idempotency_key_required"},
		{"malformed body", http.MethodPost, "/v1/holds", map[string]any{"surprise": true}, nil, http.StatusBadRequest, "invalid_request_body"},
		{"event without name", http.MethodPost, "/v1/events", map[string]any{}, nil, http.StatusBadRequest, "event_name_required"},
		{"zone under unknown event", http.MethodPost, "/v1/events/nope/zones", map[string]any{"name": "x", "capacity": 1}, nil, http.StatusNotFound, "event_not_found"},
	}
	for _, tc := range cases {
		resp, body := a.do(t, tc.method, tc.path, tc.body, tc.headers)
		if resp.StatusCode != tc.wantStatus || body["code"] != tc.wantCode {
			t.Errorf("%s: status %d code %v, want %d %s", tc.name, resp.StatusCode, body["code"], tc.wantStatus, tc.wantCode)
		}
	}
}

func TestAPI_KeyReuseAcrossRequests(t *testing.T) {
	a := newAPI(t)
	eventID, zoneID := a.seed(t, 10)

	resp, _ := a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 3, "key-a"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatal("create hold failed")
	}

	resp, body := a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 4, "key-a"), nil)
	if resp.StatusCode != http.StatusConflict || body["code"] != "idempotency_conflict" {
		t.Errorf("key reuse: status %d body %v", resp.StatusCode, body)
	}
}

func TestAPI_ResizeZone(t *testing.T) {
	a := newAPI(t)
	eventID, zoneID := a.seed(t, 5)

	resp, _ := a.do(t, http.MethodPost, "/v1/holds", holdBody(eventID, zoneID, 4, "key-a"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatal("create hold failed")
	}

	path := fmt.Sprintf("/v1/events/%s/zones/%s", eventID, zoneID)
	resp, body := a.do(t, http.MethodPatch, path, map[string]any{"capacity": 20}, nil)
	if resp.StatusCode != http.StatusOK || body["capacity"] != float64(20) {
		t.Fatalf("grow: status %d body %v", resp.StatusCode, body)
	}

	resp, body = a.do(t, http.MethodPatch, path, map[string]any{"capacity": 3}, nil)
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "invalid_capacity" {
		t.Errorf("shrink below held: status %d body %v", resp.StatusCode, body)
	}
}

func TestAPI_Health(t *testing.T) {
	a := newAPI(t)

	for _, path := range []string{"/v1/healthz", "/v1/readyz"} {
		resp, _ := a.do(t, http.MethodGet, path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}
}
