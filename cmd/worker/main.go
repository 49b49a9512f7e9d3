package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/app"
	pkgLog "github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

// worker runs the expiry sweeper and the payment consumer without any
// client-facing transport.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, l, true)
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize application: %v", err)
	}
	defer a.Close()

	if err := a.Components.Sweeper.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start expiry sweeper: %v", err)
	}

	if a.Consumer != nil {
		if err := a.Consumer.Start(ctx); err != nil {
			l.Fatalf(ctx, "Failed to start kafka consumer: %v", err)
		}
	}

	<-ctx.Done()
	l.Info(ctx, "Worker shutting down...")

	if err := a.Components.Sweeper.Stop(); err != nil {
		l.Errorf(ctx, "Failed to stop expiry sweeper: %v", err)
	}

	l.Info(ctx, "Worker exited")
}
