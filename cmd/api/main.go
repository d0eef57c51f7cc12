package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/tessera/internal/api"
	"example.com/tessera/internal/auth"
	"example.com/tessera/internal/config"
	"example.com/tessera/internal/garmin"
	"example.com/tessera/internal/ingest"
	persistence "example.com/tessera/internal/persistence/postgres"
	"example.com/tessera/internal/trends"
	httptransport "example.com/tessera/internal/transport/http"
	"example.com/tessera/internal/withings"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	observations := persistence.NewObservationRepository(pool)
	integrations := persistence.NewIntegrationRepository(pool)
	snapshots := persistence.NewSnapshotRepository(pool)

	cipher := garmin.NewCipher(cfg.EncryptionKey)

	orchestrator := ingest.NewOrchestrator(
		observations,
		integrations,
		withings.NewClient(withings.ClientConfig{
			BaseURL:      cfg.WithingsBaseURL,
			ClientID:     cfg.WithingsClientID,
			ClientSecret: cfg.WithingsClientSecret,
			Timeout:      cfg.VendorHTTPTimeout,
		}),
		garmin.NewClient(garmin.ClientConfig{
			BaseURL:  cfg.GarminServiceURL,
			AdminKey: cfg.GarminAdminKey,
			Timeout:  cfg.VendorHTTPTimeout,
		}),
		cipher,
	)

	engine := trends.NewEngine(observations, snapshots)

	handler := api.NewHandler(orchestrator, engine, integrations, observations, snapshots, cipher)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics" || r.Method == http.MethodOptions
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.HTTPAddress,
	}, authMiddleware.Wrap(logger(cors(mux))))

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httptransport.ListenAndShutdown(signalCtx, "tessera api", server, 15*time.Second)
}
