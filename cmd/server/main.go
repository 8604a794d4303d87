/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the PairLedger server. Handles configuration,
  dependency injection, participant seeding, and graceful shutdown.

STARTUP SEQUENCE:
  1. Read environment config, apply command-line flag overrides
  2. Initialize SQLite store
  3. Seed the two participant accounts and bind them
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  Environment (flags override):
    PAIRLEDGER_PORT          HTTP port (default 8080)
    PAIRLEDGER_DB            SQLite path (default pairledger.db, ":memory:" works)
    PAIRLEDGER_TOKEN_SECRET  HMAC secret for bearer tokens (required)
    PAIRLEDGER_TOKEN_TTL     Token lifetime (default 12h)
    PAIRLEDGER_PAIR          The two participant names (default "boy,girl")

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  PAIRLEDGER_TOKEN_SECRET=dev ./server -db=":memory:"
  PAIRLEDGER_TOKEN_SECRET=dev ./server -port=3000 -pair="alice,bob"

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/warp/pairledger/api"
	"github.com/warp/pairledger/store/sqlite"
)

type config struct {
	Port        int           `env:"PAIRLEDGER_PORT" envDefault:"8080"`
	DBPath      string        `env:"PAIRLEDGER_DB" envDefault:"pairledger.db"`
	TokenSecret string        `env:"PAIRLEDGER_TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"PAIRLEDGER_TOKEN_TTL" envDefault:"12h"`
	Pair        []string      `env:"PAIRLEDGER_PAIR" envDefault:"boy,girl"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}

	// Flag overrides
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	pair := flag.String("pair", "", "the two participant names, comma-separated")
	flag.Parse()

	if cfg.TokenSecret == "" {
		log.Fatal("PAIRLEDGER_TOKEN_SECRET is required")
	}
	names := cfg.Pair
	if *pair != "" {
		names = splitPair(*pair)
	}
	if len(names) != 2 {
		log.Fatalf("Expected exactly two participant names, got %v", names)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler and seed the pair
	auth := api.NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL)
	handler := api.NewHandler(store, auth)
	if err := handler.Accounts.SeedPair(context.Background(), names[0], names[1]); err != nil {
		log.Fatalf("Failed to seed participants: %v", err)
	}

	// Create router and server
	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func splitPair(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
