package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"centralis.org/internal/auth"
	"centralis.org/internal/config"
	"centralis.org/internal/httpapi"
	"centralis.org/internal/obs"
	"centralis.org/internal/rbac"
	"centralis.org/internal/store"
	"centralis.org/internal/store/memory"
	"centralis.org/internal/stream"
	"centralis.org/internal/workflow"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		obs.Error("startup_failed", err, nil)
		os.Exit(1)
	}
}

func run() error {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	obs.SetReady(false)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	auth.Configure(cfg.AuthSecret)
	if !auth.Enabled() {
		return errors.New("auth secret is not configured: set CENTRALIS_AUTH_SECRET")
	}

	policy := rbac.DefaultPolicy()
	if cfg.RolePolicy != "" {
		if policy, err = rbac.LoadPolicyFile(cfg.RolePolicy); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	backend, err := store.Open(openCtx, cfg.DBURL, cfg.AutoMigrate)
	cancel()
	if err != nil {
		return err
	}
	defer backend.Close()

	if cfg.SeedDemo {
		if backend.Memory == nil {
			return errors.New("demo seed is only supported for the in-memory store")
		}
		if err := memory.SeedDemo(ctx, backend.Memory); err != nil {
			return err
		}
		obs.Info("demo_seeded", map[string]any{"director": memory.DemoDirector})
	}

	directory := rbac.NewDirectory(backend.Backend, policy)
	events := stream.New()
	engine := workflow.NewEngine(backend.Backend, directory, workflow.WithNotifier(events))
	probe := httpapi.ReadyProbe{DB: backend.DB}

	api := httpapi.New(engine, directory, probe, httpapi.Options{
		Version:      version,
		ExportAPIKey: cfg.ExportAPIKey,
		DevTokens:    cfg.DevTokens,
		TokenTTL:     cfg.TokenTTL,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSec,
		TrustProxy:   cfg.TrustProxy,
		Events:       events,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := httpapi.NewHealthServer(probe)
	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		obs.Info("http_listen", map[string]any{"addr": srv.Addr, "version": version, "memory_store": cfg.MemoryBackend()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		obs.Info("grpc_listen", map[string]any{"addr": grpcLis.Addr().String()})
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()
	go health.Watch(ctx, 10*time.Second)

	select {
	case <-ctx.Done():
	case err = <-errCh:
		obs.Error("server_failed", err, nil)
	}

	obs.Info("shutting_down", nil)
	obs.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	obs.Info("stopped", nil)
	return err
}
