package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/tessera/internal/config"
	"example.com/tessera/internal/consumer"
	"example.com/tessera/internal/garmin"
	"example.com/tessera/internal/ingest"
	persistence "example.com/tessera/internal/persistence/postgres"
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

	orchestrator := ingest.NewOrchestrator(
		persistence.NewObservationRepository(pool),
		persistence.NewIntegrationRepository(pool),
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
		garmin.NewCipher(cfg.EncryptionKey),
	)

	handler := consumer.NewSyncHandler(orchestrator)

	metricsSrv := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.MetricsAddress,
	}, promhttp.Handler())

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()
		httptransport.ListenAndShutdown(ctx, "consumer metrics", metricsSrv, 10*time.Second)
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           cfg.SyncTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})

	proc := consumer.NewProcessor(reader, handler)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()

		log.Printf("consumer started (topic=%s, group=%s)", cfg.SyncTopic, cfg.ConsumerGroupID)
		if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("consumer stopped with error: %v", err)
		}
	}()

	<-stop
	log.Println("consumer shutdown requested")
	cancel()

	wg.Wait()
}
