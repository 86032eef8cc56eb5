// Command jiramock serves a generated epic population through a minimal
// Jira REST API, so the forecasting commands can run without a real
// instance: point JIRA_URL at it with any credentials.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"epicast/cmd/jiramock/engine"
)

func main() {
	addr := flag.String("addr", ":8787", "Listen address")
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	project := flag.String("project", "EP", "Project key for generated epics")
	count := flag.Int("count", 200, "Number of epics to generate")
	seed := flag.Int64("seed", 0, "Random seed, 0 derives one from the clock")
	flag.Parse()

	cfg := engine.Config{
		Scenario:     *scenario,
		Distribution: *distribution,
		Project:      *project,
		Count:        *count,
		Seed:         *seed,
		Now:          time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Count: %d)...\n", cfg.Scenario, cfg.Distribution, cfg.Count)
	issues := engine.Generate(cfg)

	fmt.Printf("Mock Jira for project %s listening on %s\n", *project, *addr)
	if err := http.ListenAndServe(*addr, newServer(issues).routes()); err != nil {
		fmt.Printf("Server failed: %v\n", err)
		os.Exit(1)
	}
}
