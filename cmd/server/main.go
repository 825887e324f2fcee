package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"detectserver/internal/app"
	"detectserver/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(config.Load())
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
