// Command voyagesim replays a synthetic voyage against a running API: one
// telemetry sample per second, with a storm rolling in partway through.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/tan-73/bluepath-optimizer/internal/telemetry"
)

func main() {
	var (
		routeID  = flag.String("route-id", "", "route to push telemetry for (required)")
		duration = flag.Int("duration", 60, "number of samples, one per second")
		apiURL   = flag.String("api-url", "http://localhost:8080", "base URL of the API")
		seed     = flag.Int64("seed", 42, "random seed for the weather stream")
	)
	flag.Parse()
	if *routeID == "" {
		log.Fatal("route-id is required")
	}

	sim := telemetry.NewSimulator(*seed)
	client := &http.Client{Timeout: 5 * time.Second}
	endpoint := *apiURL + "/api/iot/push"

	log.Printf("voyage start: route=%s samples=%d", *routeID, *duration)
	for i := 0; i < *duration; i++ {
		if i == *duration*3/10 {
			sim.SimulateStorm()
			log.Printf("storm front reached the route")
		}
		if i == *duration*6/10 {
			sim.ResetNormal()
			log.Printf("sea state returning to normal")
		}

		sample := sim.Sample(*routeID)
		log.Printf("t=%03d wave=%.2fm wind=%.1fkn vis=%.1fnm", i, sample.WaveHeight, sample.WindSpeed, sample.Visibility)
		if sample.WaveHeight > 4.5 {
			log.Printf("  high sea state: expecting reoptimization")
		}

		body, err := json.Marshal(sample)
		if err != nil {
			log.Fatalf("marshal sample: %v", err)
		}
		resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("  push failed: %v", err)
		} else {
			if resp.StatusCode != http.StatusOK {
				log.Printf("  push rejected: %s", resp.Status)
			}
			resp.Body.Close()
		}

		time.Sleep(time.Second)
	}
	log.Printf("voyage complete")
}
