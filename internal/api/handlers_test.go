package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tan-73/bluepath-optimizer/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("OPTIMIZER_CONFIG", "")
	t.Setenv("SEED", "")
	s, err := NewServer()
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func computeRoute(t *testing.T, s *Server, quantum bool) model.RouteResponse {
	t.Helper()
	body, _ := json.Marshal(model.RouteRequest{
		StartLat: 1.3, StartLon: 103.8, // Singapore
		DestLat: 25.0, DestLon: 55.1, // Dubai
		Priorities:  map[string]float64{"fuel": 0.5, "time": 0.3, "safety": 0.2},
		QuantumMode: quantum,
	})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/route/compute", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.RouteComputeHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("compute: got %d: %s", rr.Code, rr.Body.String())
	}
	var resp model.RouteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestComputeAndFetchRoute(t *testing.T) {
	s := newTestServer(t)
	resp := computeRoute(t, s, false)

	if resp.RouteID == "" {
		t.Fatal("empty route id")
	}
	wantLen := s.Engine.Config().Waypoints + 2
	if len(resp.Path) != wantLen {
		t.Fatalf("path length %d, want %d", len(resp.Path), wantLen)
	}
	if resp.Path[0][0] != 1.3 || resp.Path[0][1] != 103.8 {
		t.Fatalf("path does not begin at departure: %v", resp.Path[0])
	}
	last := resp.Path[len(resp.Path)-1]
	if last[0] != 25.0 || last[1] != 55.1 {
		t.Fatalf("path does not end at destination: %v", last)
	}
	if resp.Distance <= 0 {
		t.Fatalf("distance: %v", resp.Distance)
	}
	for _, k := range []string{"fuel_score", "time_score", "safety_score", "overall_score"} {
		if _, ok := resp.OptimizationScores[k]; !ok {
			t.Fatalf("missing score %s: %v", k, resp.OptimizationScores)
		}
	}

	rr := httptest.NewRecorder()
	s.RouteByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/api/route/"+resp.RouteID, nil))
	if rr.Code != 200 {
		t.Fatalf("get route: %d", rr.Code)
	}
	var rt model.Route
	if err := json.Unmarshal(rr.Body.Bytes(), &rt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rt.ETA != resp.ETA || rt.Distance != resp.Distance {
		t.Fatalf("stored route diverges from response: %+v vs %+v", rt, resp)
	}
}

func TestRouteNotFound(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.RouteByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/api/route/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
}

func TestComputeRejectsBadRequest(t *testing.T) {
	s := newTestServer(t)
	cases := []string{
		`{"start_lat":95,"start_lon":0,"dest_lat":0,"dest_lon":0}`,
		`{"start_lat":0,"start_lon":200,"dest_lat":0,"dest_lon":0}`,
		`{"start_lat":0,"start_lon":0,"dest_lat":0,"dest_lon":0,"priorities":{"speed":1}}`,
		`{"start_lat":0,"start_lon":0,"dest_lat":0,"dest_lon":0,"priorities":{"fuel":-1}}`,
		`not json`,
	}
	for _, body := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/route/compute", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		s.RouteComputeHandler(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: got %d, want 400", body, rr.Code)
		}
	}
}

func pushTelemetry(t *testing.T, s *Server, sample model.Telemetry) map[string]any {
	t.Helper()
	body, _ := json.Marshal(sample)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/iot/push", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.TelemetryPushHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("push: got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestTelemetryPushStoresAndBroadcasts(t *testing.T) {
	s := newTestServer(t)
	route := computeRoute(t, s, false)

	ch := s.Broker.Subscribe(route.RouteID)
	defer s.Broker.Unsubscribe(route.RouteID, ch)

	resp := pushTelemetry(t, s, model.Telemetry{
		RouteID:    route.RouteID,
		WaveHeight: 2.1, WindSpeed: 18, CurrentSpeed: 1, Visibility: 10, Temperature: 24,
	})
	if resp["status"] != "received" {
		t.Fatalf("status: %v", resp["status"])
	}
	if resp["reoptimized"] != false {
		t.Fatalf("calm sea must not reoptimize: %v", resp)
	}

	select {
	case evt := <-ch:
		if evt.Type != "telemetry_update" {
			t.Fatalf("event type: %s", evt.Type)
		}
		if evt.Data["wave_height"].(float64) != 2.1 {
			t.Fatalf("event payload: %+v", evt.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("no telemetry event broadcast")
	}

	rr := httptest.NewRecorder()
	s.TelemetryListHandler(rr, httptest.NewRequest(http.MethodGet, "/api/iot/telemetry/"+route.RouteID, nil))
	if rr.Code != 200 {
		t.Fatalf("list telemetry: %d", rr.Code)
	}
	var list struct {
		Items []model.Telemetry `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].WaveHeight != 2.1 {
		t.Fatalf("stored telemetry: %+v", list.Items)
	}
}

func TestHighWaveTriggersReoptimization(t *testing.T) {
	s := newTestServer(t)
	route := computeRoute(t, s, false)

	ch := s.Broker.Subscribe(route.RouteID)
	defer s.Broker.Unsubscribe(route.RouteID, ch)

	resp := pushTelemetry(t, s, model.Telemetry{
		RouteID:    route.RouteID,
		WaveHeight: 6.0, WindSpeed: 40, CurrentSpeed: 2, Visibility: 3, Temperature: 22,
	})
	if resp["reoptimized"] != true {
		t.Fatalf("wave 6.0 must reoptimize: %v", resp)
	}

	// replan restarts one third along the old path
	rr := httptest.NewRecorder()
	s.RouteByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/api/route/"+route.RouteID, nil))
	var rt model.Route
	if err := json.Unmarshal(rr.Body.Bytes(), &rt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resume := route.Path[len(route.Path)/3]
	if rt.Path[0][0] != resume[0] || rt.Path[0][1] != resume[1] {
		t.Fatalf("new plan starts at %v, want %v", rt.Path[0], resume)
	}
	// scores are from the original computation and survive the replan
	if rt.Scores["overall_score"] != route.OptimizationScores["overall_score"] {
		t.Fatalf("scores clobbered by replan")
	}

	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case evt := <-ch:
			types[evt.Type] = true
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("only got events %v", types)
		}
	}
	if !types["telemetry_update"] || !types["route_update"] {
		t.Fatalf("want telemetry_update and route_update, got %v", types)
	}
}

func TestHighWaveForUnknownRouteIsKept(t *testing.T) {
	s := newTestServer(t)
	resp := pushTelemetry(t, s, model.Telemetry{
		RouteID:    "ghost",
		WaveHeight: 6.0, WindSpeed: 40, CurrentSpeed: 2, Visibility: 3, Temperature: 22,
	})
	if resp["reoptimized"] != false {
		t.Fatalf("unknown route must not reoptimize: %v", resp)
	}
	items, err := s.Store.ListTelemetry(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "ghost", 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("sample should still be stored: %v %v", items, err)
	}
}

func TestAuditLogAndVerify(t *testing.T) {
	s := newTestServer(t)

	for _, action := range []string{"Voyage Plan Approved", "Crew Manifest Updated"} {
		body, _ := json.Marshal(model.AuditEntryIn{Action: action, Data: map[string]any{"by": "ops"}})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/audit/log", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		s.AuditLogHandler(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("audit log: %d: %s", rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	s.AuditVerifyHandler(rr, httptest.NewRequest(http.MethodGet, "/api/audit/verify", nil))
	if rr.Code != 200 {
		t.Fatalf("verify: %d", rr.Code)
	}
	var verdict struct {
		Valid   bool    `json:"valid"`
		Message string  `json:"message"`
		Entries float64 `json:"entries"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !verdict.Valid || verdict.Entries != 2 {
		t.Fatalf("verdict: %+v", verdict)
	}
}

func TestAuditLogRejectsMissingAction(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/audit/log", bytes.NewReader([]byte(`{"data":{}}`)))
	req.Header.Set("Content-Type", "application/json")
	s.AuditLogHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestComputeAppendsVerifiableAudit(t *testing.T) {
	s := newTestServer(t)
	computeRoute(t, s, false)
	computeRoute(t, s, true)

	rr := httptest.NewRecorder()
	s.AuditVerifyHandler(rr, httptest.NewRequest(http.MethodGet, "/api/audit/verify", nil))
	var verdict struct {
		Valid   bool    `json:"valid"`
		Entries float64 `json:"entries"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !verdict.Valid || verdict.Entries != 2 {
		t.Fatalf("verdict: %+v", verdict)
	}
}

func TestQuantumSimulate(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.QuantumSimulateHandler(rr, httptest.NewRequest(http.MethodPost, "/api/quantum/simulate", nil))
	if rr.Code != 200 {
		t.Fatalf("got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["quantum_enhanced"] != true {
		t.Fatalf("response: %+v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	checks := []struct {
		h    http.HandlerFunc
		path string
	}{
		{s.RouteComputeHandler, "/api/route/compute"},
		{s.TelemetryPushHandler, "/api/iot/push"},
		{s.AuditLogHandler, "/api/audit/log"},
		{s.QuantumSimulateHandler, "/api/quantum/simulate"},
	}
	for _, c := range checks {
		rr := httptest.NewRecorder()
		c.h(rr, httptest.NewRequest(http.MethodDelete, c.path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: got %d, want 405", c.path, rr.Code)
		}
	}
}
