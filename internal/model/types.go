// Package model holds the wire and storage types shared by the API and
// store layers.
package model

import "time"

// RouteRequest is the body of POST /api/route/compute. Priorities come in as
// a map so that omitted weights can be told apart from explicit zeros;
// missing keys get the optimizer defaults.
type RouteRequest struct {
	StartLat    float64            `json:"start_lat"`
	StartLon    float64            `json:"start_lon"`
	DestLat     float64            `json:"dest_lat"`
	DestLon     float64            `json:"dest_lon"`
	Priorities  map[string]float64 `json:"priorities"`
	ShipParams  map[string]any     `json:"ship_params,omitempty"`
	QuantumMode bool               `json:"quantum_mode"`
}

// RouteResponse is returned by POST /api/route/compute.
type RouteResponse struct {
	RouteID            string             `json:"route_id"`
	Path               [][]float64        `json:"path"`
	Distance           float64            `json:"distance"`
	ETA                string             `json:"eta"`
	FuelEstimate       float64            `json:"fuel_estimate"`
	OptimizationScores map[string]float64 `json:"optimization_scores"`
}

// Route is the persisted form of a computed route.
type Route struct {
	RouteID      string             `json:"route_id"`
	Path         [][]float64        `json:"path"` // [lat, lon] pairs
	Distance     float64            `json:"distance"`
	ETA          string             `json:"eta"`
	FuelEstimate float64            `json:"fuel_estimate"`
	Scores       map[string]float64 `json:"scores"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Telemetry is one environmental sample pushed by a vessel (or the voyage
// simulator) for a route.
type Telemetry struct {
	ID           string  `json:"id,omitempty"` // store-assigned
	RouteID      string  `json:"route_id"`
	Timestamp    string  `json:"timestamp"`
	WaveHeight   float64 `json:"wave_height"`   // metres
	WindSpeed    float64 `json:"wind_speed"`    // knots
	CurrentSpeed float64 `json:"current_speed"` // knots
	Visibility   float64 `json:"visibility"`    // nautical miles
	Temperature  float64 `json:"temperature"`   // celsius
}

// AuditEntryIn is the body of POST /api/audit/log.
type AuditEntryIn struct {
	Action    string         `json:"action"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}
