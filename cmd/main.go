package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/episode-duplication/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		application.Log.Error("Failed to start workers", "error", err)
		os.Exit(1)
	}
	if err := application.Run(ctx); err != nil {
		application.Log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
	application.Log.Info("Shutting down")
}
