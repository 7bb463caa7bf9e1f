package api

import (
	"fmt"
	"math"

	"github.com/tan-73/bluepath-optimizer/internal/model"
)

func validateRouteRequest(req *model.RouteRequest) error {
	coords := []struct {
		name string
		v    float64
	}{
		{"start_lat", req.StartLat},
		{"start_lon", req.StartLon},
		{"dest_lat", req.DestLat},
		{"dest_lon", req.DestLon},
	}
	for _, c := range coords {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%s must be finite", c.name)
		}
	}
	if req.StartLat < -90 || req.StartLat > 90 || req.DestLat < -90 || req.DestLat > 90 {
		return fmt.Errorf("latitude must be in [-90, 90]")
	}
	if req.StartLon < -180 || req.StartLon > 180 || req.DestLon < -180 || req.DestLon > 180 {
		return fmt.Errorf("longitude must be in [-180, 180]")
	}
	allowed := map[string]struct{}{"fuel": {}, "time": {}, "safety": {}}
	for k, v := range req.Priorities {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("unknown priority key: %s (allowed: fuel,time,safety)", k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("priority %s must be finite and >= 0", k)
		}
	}
	return nil
}

func validateTelemetry(t *model.Telemetry) error {
	if t.RouteID == "" {
		return fmt.Errorf("route_id is required")
	}
	readings := []struct {
		name string
		v    float64
	}{
		{"wave_height", t.WaveHeight},
		{"wind_speed", t.WindSpeed},
		{"current_speed", t.CurrentSpeed},
		{"visibility", t.Visibility},
	}
	for _, r := range readings {
		if math.IsNaN(r.v) || math.IsInf(r.v, 0) || r.v < 0 {
			return fmt.Errorf("%s must be finite and >= 0", r.name)
		}
	}
	if math.IsNaN(t.Temperature) || math.IsInf(t.Temperature, 0) {
		return fmt.Errorf("temperature must be finite")
	}
	return nil
}
