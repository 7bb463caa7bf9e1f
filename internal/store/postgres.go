package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tan-73/bluepath-optimizer/internal/audit"
	"github.com/tan-73/bluepath-optimizer/internal/model"
)

// Postgres persists routes, telemetry and the audit chain via pgx's
// database/sql driver. Paths and scores are stored as JSONB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping is used by the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate bootstraps the schema. Idempotent; meant for dev and demo
// deployments where a migration tool would be overkill.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS routes (
			route_id      TEXT PRIMARY KEY,
			path          JSONB NOT NULL,
			distance      DOUBLE PRECISION NOT NULL,
			eta           TEXT NOT NULL,
			fuel_estimate DOUBLE PRECISION NOT NULL,
			scores        JSONB NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS telemetry (
			id            UUID PRIMARY KEY,
			route_id      TEXT NOT NULL,
			ts            TEXT NOT NULL,
			wave_height   DOUBLE PRECISION NOT NULL,
			wind_speed    DOUBLE PRECISION NOT NULL,
			current_speed DOUBLE PRECISION NOT NULL,
			visibility    DOUBLE PRECISION NOT NULL,
			temperature   DOUBLE PRECISION NOT NULL,
			received_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS telemetry_route_idx ON telemetry (route_id, received_at)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			seq       BIGSERIAL PRIMARY KEY,
			id        UUID NOT NULL,
			action    TEXT NOT NULL,
			data      TEXT NOT NULL,
			ts        TEXT NOT NULL,
			hash      TEXT NOT NULL UNIQUE,
			signature TEXT NOT NULL,
			prev_hash TEXT NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) SaveRoute(ctx context.Context, r model.Route) error {
	pathJSON, err := json.Marshal(r.Path)
	if err != nil {
		return err
	}
	scoresJSON, err := json.Marshal(r.Scores)
	if err != nil {
		return err
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO routes (route_id, path, distance, eta, fuel_estimate, scores, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (route_id) DO UPDATE SET
		   path=EXCLUDED.path, distance=EXCLUDED.distance, eta=EXCLUDED.eta,
		   fuel_estimate=EXCLUDED.fuel_estimate, scores=EXCLUDED.scores`,
		r.RouteID, pathJSON, r.Distance, r.ETA, r.FuelEstimate, scoresJSON, created)
	return err
}

func (p *Postgres) GetRoute(ctx context.Context, routeID string) (model.Route, error) {
	var r model.Route
	var pathJSON, scoresJSON []byte
	row := p.db.QueryRowContext(ctx,
		`SELECT route_id, path, distance, eta, fuel_estimate, scores, created_at
		 FROM routes WHERE route_id=$1`, routeID)
	if err := row.Scan(&r.RouteID, &pathJSON, &r.Distance, &r.ETA, &r.FuelEstimate, &scoresJSON, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, ErrNotFound
		}
		return r, err
	}
	if err := json.Unmarshal(pathJSON, &r.Path); err != nil {
		return r, err
	}
	if err := json.Unmarshal(scoresJSON, &r.Scores); err != nil {
		return r, err
	}
	return r, nil
}

func (p *Postgres) UpdateRoutePlan(ctx context.Context, routeID string, path [][]float64, distance float64, eta string, fuel float64) error {
	pathJSON, err := json.Marshal(path)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE routes SET path=$2, distance=$3, eta=$4, fuel_estimate=$5 WHERE route_id=$1`,
		routeID, pathJSON, distance, eta, fuel)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) InsertTelemetry(ctx context.Context, t model.Telemetry) (string, error) {
	id := uuid.New()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO telemetry (id, route_id, ts, wave_height, wind_speed, current_speed, visibility, temperature)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		id, t.RouteID, t.Timestamp, t.WaveHeight, t.WindSpeed, t.CurrentSpeed, t.Visibility, t.Temperature)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (p *Postgres) ListTelemetry(ctx context.Context, routeID string, limit int) ([]model.Telemetry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, route_id, ts, wave_height, wind_speed, current_speed, visibility, temperature
		 FROM telemetry WHERE route_id=$1 ORDER BY received_at DESC LIMIT $2`, routeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Telemetry{}
	for rows.Next() {
		var t model.Telemetry
		if err := rows.Scan(&t.ID, &t.RouteID, &t.Timestamp, &t.WaveHeight, &t.WindSpeed, &t.CurrentSpeed, &t.Visibility, &t.Temperature); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	// reverse into chronological order, newest last
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func (p *Postgres) AppendAudit(ctx context.Context, rec audit.Record) (string, error) {
	id := uuid.New()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, action, data, ts, hash, signature, prev_hash)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, rec.Action, rec.Data, rec.Timestamp, rec.Hash, rec.Signature, rec.PrevHash)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (p *Postgres) LastAuditHash(ctx context.Context) (string, error) {
	var h string
	err := p.db.QueryRowContext(ctx, `SELECT hash FROM audit_log ORDER BY seq DESC LIMIT 1`).Scan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.GenesisHash, nil
	}
	if err != nil {
		return "", err
	}
	return h, nil
}

func (p *Postgres) ListAudit(ctx context.Context) ([]audit.Record, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, action, data, ts, hash, signature, prev_hash FROM audit_log ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []audit.Record{}
	for rows.Next() {
		var r audit.Record
		if err := rows.Scan(&r.ID, &r.Action, &r.Data, &r.Timestamp, &r.Hash, &r.Signature, &r.PrevHash); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
