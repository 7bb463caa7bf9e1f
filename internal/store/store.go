package store

import (
	"context"
	"errors"

	"github.com/tan-73/bluepath-optimizer/internal/audit"
	"github.com/tan-73/bluepath-optimizer/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Routes
	SaveRoute(ctx context.Context, r model.Route) error
	GetRoute(ctx context.Context, routeID string) (model.Route, error)
	// UpdateRoutePlan replaces the plan of an existing route after a
	// reoptimization; scores and created-at are left untouched.
	UpdateRoutePlan(ctx context.Context, routeID string, path [][]float64, distance float64, eta string, fuel float64) error

	// Telemetry
	InsertTelemetry(ctx context.Context, t model.Telemetry) (id string, err error)
	ListTelemetry(ctx context.Context, routeID string, limit int) ([]model.Telemetry, error)

	// Audit chain, append-only in insertion order.
	AppendAudit(ctx context.Context, rec audit.Record) (id string, err error)
	LastAuditHash(ctx context.Context) (string, error) // audit.GenesisHash when empty
	ListAudit(ctx context.Context) ([]audit.Record, error)
}

var ErrNotFound = errors.New("not found")
