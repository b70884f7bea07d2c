package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tourplan/internal/api"
	"tourplan/internal/config"
	"tourplan/internal/metrics"
)

func main() {
	cfgPath := os.Getenv("TOURPLAN_CONFIG")
	if cfgPath == "" {
		cfgPath = "tourplan.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	srvDeps, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Tournées
	mux.HandleFunc("/v1/tournees", srvDeps.TourneesHandler)
	mux.HandleFunc("/v1/tournees/", srvDeps.TourneeByCodeHandler) // includes /coherence, /split-advice, /reassign-*

	// Resources
	mux.HandleFunc("/v1/drivers", srvDeps.DriversHandler)
	mux.HandleFunc("/v1/drivers/", srvDeps.DriverByIDHandler)
	mux.HandleFunc("/v1/vehicles", srvDeps.VehiclesHandler)
	mux.HandleFunc("/v1/vehicles/", srvDeps.VehicleByIDHandler)

	// Planning health and modification log
	mux.HandleFunc("/v1/planning/health", srvDeps.PlanningHealthHandler)
	mux.HandleFunc("/v1/planning/changes", srvDeps.PlanChangesHandler)

	// Vacation campaign
	mux.HandleFunc("/v1/campaign/leave-requests", srvDeps.LeaveRequestsHandler)
	mux.HandleFunc("/v1/campaign/leave-requests/", srvDeps.LeaveRequestByIDHandler)
	mux.HandleFunc("/v1/campaign/simulate", srvDeps.SimulateHandler)
	mux.HandleFunc("/v1/campaign/capacity", srvDeps.CapacityHandler)

	// Live board
	mux.HandleFunc("/v1/board/stream", srvDeps.BoardStreamHandler)
	mux.HandleFunc("/v1/board/ws", srvDeps.BoardWSHandler)

	// Webhook subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

	// Admin
	mux.HandleFunc("/v1/admin/webhook-deliveries", srvDeps.WebhookDeliveriesHandler)

	// Health and introspection
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.HandleFunc("/version", srvDeps.VersionHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	limited := api.NewRateLimiter(50, 100)(mux)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(api.MetricsMiddleware(limited)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	worker := srvDeps.NewWebhookWorker()
	worker.Start()
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
