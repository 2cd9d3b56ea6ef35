package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initializeApp()
	if err != nil {
		log.Fatalf("agrihealth: wiring failed: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("agrihealth: server stopped: %v", err)
	}
}
