// Package main API Server 入口
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/apiserver/server"
	"tragic-bricks/internal/config"
	"tragic-bricks/internal/ledger"
	objstore "tragic-bricks/internal/shared/minio"
	redislocker "tragic-bricks/internal/shared/locker/redis"
	"tragic-bricks/internal/shared/storage/mongostore"
	"tragic-bricks/pkg/logging"
)

const startupTimeout = 30 * time.Second

func main() {
	configDir := flag.String("config", "", "配置文件目录（覆盖 CONFIG_DIR）")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	cfg := config.Load()
	log := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "api-server",
	})

	if err := run(cfg, log); err != nil {
		log.Error("api server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	log.Info("starting API server", "env", cfg.Env, "config", cfg.String(), "config_file", cfg.ConfigFilePath)

	if err := cfg.Validate(); err != nil {
		return err
	}

	// JWT 签发器（密钥缺失时拒绝启动）
	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// MongoDB
	store, err := mongostore.NewStore(cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		return err
	}
	defer store.Close()
	store.SetLogger(log.Named("mongostore"))
	log.Info("connected to MongoDB", "database", cfg.DatabaseName)

	if n, err := store.MigrateLegacyLocationTypes(ctx); err != nil {
		return err
	} else if n > 0 {
		log.Info("migrated legacy location types", "count", n)
	}

	if err := auth.EnsureAdminUser(ctx, store, log.Named("auth"), cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	// MinIO
	objects, err := objstore.NewClient(cfg.MinIO, log.Named("objstore"))
	if err != nil {
		return err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return err
	}
	log.Info("object store ready", "endpoint", cfg.MinIO.Endpoint, "bucket", objects.Bucket())

	// 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := server.NewMetrics("tragic_bricks", reg)

	opts := []ledger.Option{
		ledger.WithRecorder(metrics),
		ledger.WithLockTimeout(cfg.Ledger.LockTimeout),
	}

	// Redis 分布式锁（可选）
	if cfg.RedisURL != "" {
		lk, err := redislocker.NewLocker(cfg.RedisURL, cfg.Ledger.LockTTL)
		if err != nil {
			return err
		}
		defer lk.Close()
		opts = append(opts, ledger.WithLocker(lk))
		log.Info("per-location locking via Redis enabled")
	} else {
		log.Warn("redis disabled; review writes rely on database transactions only")
	}

	lg := ledger.New(store, log.Named("ledger"), opts...)

	h := server.NewHandler(server.Deps{
		Store:         store,
		Ledger:        lg,
		Issuer:        issuer,
		Gate:          auth.NewGate(issuer, store, log.Named("auth")),
		Objects:       objects,
		Metrics:       metrics,
		Log:           log,
		UploadMaxSize: cfg.Upload.MaxSize,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.APIServer.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.APIServer.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
