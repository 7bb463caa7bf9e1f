package api

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/tan-73/bluepath-optimizer/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"optimizer": map[string]any{
			"particles":  s.Engine.Config().Particles,
			"iterations": s.Engine.Config().Iterations,
			"waypoints":  s.Engine.Config().Waypoints,
		},
		"config": map[string]any{
			"PORT":             os.Getenv("PORT"),
			"SEED":             os.Getenv("SEED"),
			"RATE_RPS":         os.Getenv("RATE_RPS"),
			"RATE_BURST":       os.Getenv("RATE_BURST"),
			"OPTIMIZER_CONFIG": os.Getenv("OPTIMIZER_CONFIG"),
			"HAS_DATABASE_URL": os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":    os.Getenv("REDIS_URL") != "",
			"HAS_AUDIT_SECRET": os.Getenv("AUDIT_SECRET") != "",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
