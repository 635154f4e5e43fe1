package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"armbudget/pkg/api/budget"
	"armbudget/pkg/core/columns"
	"armbudget/pkg/core/store"
	"armbudget/pkg/core/validate"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Analyst configuration; both files are optional
	colCfg, err := columns.LoadConfig(envOr("ARMBUDGET_COLUMNS", "config/columns.yaml"))
	if err != nil {
		fmt.Printf("[WARNING] Failed to load column overrides: %v\n", err)
		fmt.Println("  Falling back to era defaults")
		colCfg = &columns.Config{}
	}
	tol, err := validate.LoadTolerances(envOr("ARMBUDGET_TOLERANCES", "config/tolerances.hjson"))
	if err != nil {
		fmt.Printf("[WARNING] Failed to load tolerance profiles: %v\n", err)
		fmt.Println("  Falling back to built-in defaults")
		tol = validate.DefaultTolerances()
	}

	// Persistence is optional; without DATABASE_URL runs are not recorded
	var pg *store.PgStore
	if store.HasDatabase() {
		pool, err := store.Open(context.Background())
		if err != nil {
			fmt.Printf("[WARNING] Database unavailable: %v\n", err)
		} else {
			pg = store.NewPgStore(pool)
			defer store.Close()
			fmt.Println("[STORE] Connected to Postgres")
		}
	} else {
		fmt.Println("[STORE] DATABASE_URL not set, runs will not be persisted")
	}

	budget.InitHandler(colCfg, tol, pg)

	http.HandleFunc("/api/process", budget.HandleProcess)
	http.HandleFunc("/api/runs", budget.HandleRuns)
	http.HandleFunc("/api/runs/", budget.HandleRunByID)
	http.HandleFunc("/api/health", budget.HandleHealth)

	addr := envOr("ARMBUDGET_API_ADDR", ":8080")
	fmt.Printf("API server starting on %s...\n", addr)
	fmt.Println("  - POST /api/process")
	fmt.Println("  - GET  /api/runs")
	fmt.Println("  - GET  /api/runs/{id}")
	fmt.Println("  - GET  /api/health")

	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
