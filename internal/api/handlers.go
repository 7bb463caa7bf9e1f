package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tan-73/bluepath-optimizer/internal/audit"
	"github.com/tan-73/bluepath-optimizer/internal/metrics"
	"github.com/tan-73/bluepath-optimizer/internal/model"
	"github.com/tan-73/bluepath-optimizer/internal/opt"
	"github.com/tan-73/bluepath-optimizer/internal/store"
)

// Wave height above which an incoming telemetry sample triggers an automatic
// reoptimization of the affected route.
const reoptimizeWaveThreshold = 4.5

// RouteComputeHandler handles POST /api/route/compute
func (s *Server) RouteComputeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateRouteRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid route request", err.Error(), r.URL.Path)
		return
	}

	start := opt.Coord{Lat: req.StartLat, Lon: req.StartLon}
	dest := opt.Coord{Lat: req.DestLat, Lon: req.DestLon}
	pr := opt.PrioritiesFromMap(req.Priorities)

	began := time.Now()
	res, err := s.Engine.Optimize(start, dest, pr, req.QuantumMode)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Optimization failed", err.Error(), r.URL.Path)
		return
	}
	metrics.OptimizeDuration.Observe(time.Since(began).Seconds())
	mode := "classical"
	if req.QuantumMode {
		mode = "quantum"
	}
	metrics.OptimizeRuns.WithLabelValues(mode).Inc()

	routeID := newRouteID(req.StartLat, req.StartLon)
	path := pathToPairs(res.Path)
	scores := map[string]float64{
		"fuel_score":    res.Scores.Fuel,
		"time_score":    res.Scores.Time,
		"safety_score":  res.Scores.Safety,
		"overall_score": res.Scores.Overall,
	}
	route := model.Route{
		RouteID:      routeID,
		Path:         path,
		Distance:     res.Distance,
		ETA:          res.ETA,
		FuelEstimate: res.Fuel,
		Scores:       scores,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.SaveRoute(r.Context(), route); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save route failed", err.Error(), r.URL.Path)
		return
	}

	s.appendAudit(r.Context(), "Route Computed", map[string]any{
		"route_id": routeID,
		"distance": res.Distance,
		"quantum":  req.QuantumMode,
	})

	writeJSON(w, http.StatusOK, model.RouteResponse{
		RouteID:            routeID,
		Path:               path,
		Distance:           res.Distance,
		ETA:                res.ETA,
		FuelEstimate:       res.Fuel,
		OptimizationScores: scores,
	})
}

// RouteByIDHandler handles GET /api/route/{routeId}
func (s *Server) RouteByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/route/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	rt, err := s.Store.GetRoute(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Route not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get route failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

// TelemetryPushHandler handles POST /api/iot/push. High sea state triggers an
// automatic reoptimization of the route's remaining leg.
func (s *Server) TelemetryPushHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var t model.Telemetry
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if t.Timestamp == "" {
		t.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := validateTelemetry(&t); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid telemetry", err.Error(), r.URL.Path)
		return
	}

	id, err := s.Store.InsertTelemetry(r.Context(), t)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Insert telemetry failed", err.Error(), r.URL.Path)
		return
	}
	t.ID = id
	metrics.TelemetrySamples.Inc()

	s.Broker.Publish(t.RouteID, Event{Type: "telemetry_update", Data: map[string]any{
		"route_id":    t.RouteID,
		"timestamp":   t.Timestamp,
		"wave_height": t.WaveHeight,
		"wind_speed":  t.WindSpeed,
	}})

	reoptimized := false
	if t.WaveHeight > reoptimizeWaveThreshold {
		reoptimized = s.reoptimizeRoute(r.Context(), t)
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "received", "id": id, "reoptimized": reoptimized})
}

// reoptimizeRoute re-plans the stored route under the new sea state. A
// telemetry push for an unknown route is not an error; the sample is kept and
// the replan silently skipped.
func (s *Server) reoptimizeRoute(ctx context.Context, t model.Telemetry) bool {
	rt, err := s.Store.GetRoute(ctx, t.RouteID)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		return false
	}
	res, err := s.Engine.Reoptimize(pairsToPath(rt.Path), opt.Telemetry{
		WaveHeight: t.WaveHeight,
		WindSpeed:  t.WindSpeed,
	})
	if err != nil {
		return false
	}
	path := pathToPairs(res.Path)
	if err := s.Store.UpdateRoutePlan(ctx, rt.RouteID, path, res.Distance, res.ETA, res.Fuel); err != nil {
		return false
	}
	metrics.Reoptimizations.Inc()

	s.Broker.Publish(rt.RouteID, Event{Type: "route_update", Data: map[string]any{
		"route_id":      rt.RouteID,
		"path":          path,
		"distance":      res.Distance,
		"eta":           res.ETA,
		"fuel_estimate": res.Fuel,
		"reason":        "high_wave_height",
	}})
	s.appendAudit(ctx, "Route Reoptimized", map[string]any{
		"route_id":    rt.RouteID,
		"wave_height": t.WaveHeight,
		"wind_speed":  t.WindSpeed,
	})
	return true
}

// TelemetryListHandler handles GET /api/iot/telemetry/{routeId}
func (s *Server) TelemetryListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/iot/telemetry/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, err := s.Store.ListTelemetry(r.Context(), id, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List telemetry failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// AuditLogHandler handles POST /api/audit/log
func (s *Server) AuditLogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in model.AuditEntryIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if in.Action == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid audit entry", "action is required", r.URL.Path)
		return
	}
	rec, err := s.appendAudit(r.Context(), in.Action, in.Data)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Append audit failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// AuditVerifyHandler handles GET /api/audit/verify
func (s *Server) AuditVerifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	records, err := s.Store.ListAudit(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List audit failed", err.Error(), r.URL.Path)
		return
	}
	valid, msg := audit.VerifyChain(s.AuditSecret, records)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":   valid,
		"message": msg,
		"entries": len(records),
	})
}

// QuantumSimulateHandler handles POST /api/quantum/simulate. The quantum
// backend is a stub; it reports the simulated annealer capabilities only.
func (s *Server) QuantumSimulateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quantum_enhanced":    true,
		"entanglement_score":  0.95,
		"superposition_paths": 16,
		"message":             "Quantum simulation active: route candidates explored in superposition",
	})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

// appendAudit extends the hash chain with one action. Data is canonicalized
// to JSON once and the exact string is what gets hashed and stored.
func (s *Server) appendAudit(ctx context.Context, action string, data map[string]any) (audit.Record, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return audit.Record{}, err
	}
	prev, err := s.Store.LastAuditHash(ctx)
	if err != nil {
		return audit.Record{}, err
	}
	rec := audit.NewRecord(s.AuditSecret, action, string(raw), time.Now().UTC().Format(time.RFC3339), prev)
	id, err := s.Store.AppendAudit(ctx, rec)
	if err != nil {
		return audit.Record{}, err
	}
	rec.ID = id
	return rec, nil
}

// newRouteID derives a compact route identifier from the departure point and
// the current time.
func newRouteID(lat, lon float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%f%f%d", lat, lon, time.Now().UnixNano())))
	return hex.EncodeToString(sum[:])[:16]
}

func pathToPairs(path []opt.Coord) [][]float64 {
	out := make([][]float64, len(path))
	for i, c := range path {
		out[i] = []float64{c.Lat, c.Lon}
	}
	return out
}

func pairsToPath(pairs [][]float64) []opt.Coord {
	out := make([]opt.Coord, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		out = append(out, opt.Coord{Lat: p[0], Lon: p[1]})
	}
	return out
}
