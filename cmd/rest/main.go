package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"manual-chatbot-be/internal/bootstrap"
	"manual-chatbot-be/internal/config"
	"manual-chatbot-be/internal/server"
	"manual-chatbot-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg, bootstrap.Overrides{})
	if err != nil {
		log.Fatalf("Unable to bootstrap: %v", err)
	}

	// 3. Tracing
	shutdownTracer := tracer.InitTracer(cfg.Telemetry, container.Logger)

	// 4. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.StartBackground(ctx); err != nil {
		log.Fatalf("Unable to start background services: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		container.Logger.Info("Main", "Shutting down", nil)
		if err := srv.Shutdown(); err != nil {
			container.Logger.Error("Main", "Server shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		container.Logger.Error("Main", "Server stopped", map[string]interface{}{"error": err.Error()})
	}

	// In-flight ingestion runs finish before the process exits.
	container.Close()
	_ = shutdownTracer(context.Background())
}
