package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tan-73/bluepath-optimizer/internal/audit"
	"github.com/tan-73/bluepath-optimizer/internal/model"
)

// Memory is a mutex-guarded in-memory store used when no DATABASE_URL is
// set, and by the test suite.
type Memory struct {
	mu        sync.Mutex
	routes    map[string]model.Route
	telemetry map[string][]model.Telemetry // routeID -> samples, insertion order
	auditLog  []audit.Record
}

func NewMemory() *Memory {
	return &Memory{
		routes:    map[string]model.Route{},
		telemetry: map[string][]model.Telemetry{},
	}
}

func (m *Memory) SaveRoute(ctx context.Context, r model.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[r.RouteID] = r
	return nil
}

func (m *Memory) GetRoute(ctx context.Context, routeID string) (model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok {
		return model.Route{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) UpdateRoutePlan(ctx context.Context, routeID string, path [][]float64, distance float64, eta string, fuel float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok {
		return ErrNotFound
	}
	r.Path = path
	r.Distance = distance
	r.ETA = eta
	r.FuelEstimate = fuel
	m.routes[routeID] = r
	return nil
}

func (m *Memory) InsertTelemetry(ctx context.Context, t model.Telemetry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New().String()
	m.telemetry[t.RouteID] = append(m.telemetry[t.RouteID], t)
	return t.ID, nil
}

func (m *Memory) ListTelemetry(ctx context.Context, routeID string, limit int) ([]model.Telemetry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.telemetry[routeID]
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	// newest last; return the trailing window
	out := make([]model.Telemetry, limit)
	copy(out, items[len(items)-limit:])
	return out, nil
}

func (m *Memory) AppendAudit(ctx context.Context, rec audit.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.New().String()
	m.auditLog = append(m.auditLog, rec)
	return rec.ID, nil
}

func (m *Memory) LastAuditHash(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.auditLog) == 0 {
		return audit.GenesisHash, nil
	}
	return m.auditLog[len(m.auditLog)-1].Hash, nil
}

func (m *Memory) ListAudit(ctx context.Context) ([]audit.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Record, len(m.auditLog))
	copy(out, m.auditLog)
	return out, nil
}
