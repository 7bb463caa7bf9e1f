package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tan-73/bluepath-optimizer/internal/api"
	"github.com/tan-73/bluepath-optimizer/internal/metrics"
)

func main() {
	srvDeps, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Routes
	mux.HandleFunc("/api/route/compute", srvDeps.RouteComputeHandler)
	mux.HandleFunc("/api/route/", srvDeps.RouteByIDHandler)

	// Vessel telemetry
	mux.HandleFunc("/api/iot/push", srvDeps.TelemetryPushHandler)
	mux.HandleFunc("/api/iot/telemetry/", srvDeps.TelemetryListHandler)

	// Live route events
	mux.HandleFunc("/ws/route/", srvDeps.WSRouteHandler)

	// Audit chain
	mux.HandleFunc("/api/audit/log", srvDeps.AuditLogHandler)
	mux.HandleFunc("/api/audit/verify", srvDeps.AuditVerifyHandler)

	// Quantum backend stub
	mux.HandleFunc("/api/quantum/simulate", srvDeps.QuantumSimulateHandler)

	// Health
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)

	// Observability
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug", srvDeps.DebugJSON)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	handler := logMiddleware(api.RateLimitMiddleware(api.MetricsMiddleware(mux)))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}
