package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/swefoundry/backend/internal/infrastructure/config"
	"github.com/swefoundry/backend/internal/infrastructure/server"
)

func main() {
	port := flag.String("port", "", "server port (overrides PORT)")
	dbPath := flag.String("db", "", "sqlite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
