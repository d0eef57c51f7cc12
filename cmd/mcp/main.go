// MCP server exposing the trend query engine over stdio so AI assistants
// can ask questions about a user's health data.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mark3labs/mcp-go/server"

	"example.com/tessera/internal/config"
	"example.com/tessera/internal/mcptools"
	persistence "example.com/tessera/internal/persistence/postgres"
	"example.com/tessera/internal/trends"
)

func main() {
	cfg := config.Load()

	userID := os.Getenv("TESSERA_USER_ID")
	if userID == "" {
		log.Fatal("TESSERA_USER_ID is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	engine := trends.NewEngine(
		persistence.NewObservationRepository(pool),
		persistence.NewSnapshotRepository(pool),
	)

	s := server.NewMCPServer(
		"tessera",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	dataTool := mcptools.NewDataOverTimeTool(engine, userID)
	s.AddTool(dataTool.Definition(), dataTool.Handle)

	listTool := mcptools.NewListEntitiesTool()
	s.AddTool(listTool.Definition(), listTool.Handle)

	// Logs go to stderr so they never corrupt the stdio transport.
	log.SetOutput(os.Stderr)
	log.Printf("tessera mcp server ready (user=%s)", userID)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
