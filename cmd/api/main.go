package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/app"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	grpcSvc "github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/grpc"
	httpSvc "github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/http"
	pkgLog "github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

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

	verifier := auth.NewJWTVerifier(cfg.JWT, a.Clock)

	// gRPC server
	lnr, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRpcPort))
	if err != nil {
		l.Fatalf(ctx, "gRPC server failed to listen: %v", err)
	}
	gRpcSrv, health := grpcSvc.NewServer(grpcSvc.NewGrpcService(a.Engine, l), verifier, l)

	// HTTP server
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpSvc.NewRouter(httpSvc.NewHTTPHandler(a.Engine, l), verifier, l),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Infof(ctx, "gRPC server is listening on port: %d", cfg.Server.GRpcPort)
		return gRpcSrv.Serve(lnr)
	})

	g.Go(func() error {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Reservation.SweeperEnabled {
		if err := a.Components.Sweeper.Start(gctx); err != nil {
			l.Fatalf(ctx, "Failed to start expiry sweeper: %v", err)
		}
	}

	if a.Consumer != nil {
		if err := a.Consumer.Start(gctx); err != nil {
			l.Fatalf(ctx, "Failed to start kafka consumer: %v", err)
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		l.Info(ctx, "Server shutting down...")

		if cfg.Reservation.SweeperEnabled {
			if err := a.Components.Sweeper.Stop(); err != nil {
				l.Errorf(ctx, "Failed to stop expiry sweeper: %v", err)
			}
		}

		health.SetServingStatus(grpcSvc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			l.Errorf(ctx, "HTTP server shutdown: %v", err)
		}
		gRpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Errorf(ctx, "Server exited with error: %v", err)
		return
	}

	l.Info(ctx, "Server exited")
}
