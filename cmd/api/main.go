package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremyjsx/blogdesk/internal/blogs"
	"github.com/jeremyjsx/blogdesk/internal/config"
	"github.com/jeremyjsx/blogdesk/internal/events"
	"github.com/jeremyjsx/blogdesk/internal/handlers"
	"github.com/jeremyjsx/blogdesk/internal/middleware"
	"github.com/jeremyjsx/blogdesk/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open blog store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rmq, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events disabled", "error", err)
		} else {
			defer rmq.Close()
			publisher = rmq
		}
	}

	opts := []blogs.Option{
		blogs.WithPublisher(publisher),
		blogs.WithLogger(logger),
	}
	var seed []blogs.Blog
	if cfg.SeedOnEmpty {
		seed, err = blogs.SeedData()
		if err != nil {
			logger.Error("failed to read seed data", "error", err)
			os.Exit(1)
		}
		opts = append(opts, blogs.WithSeed(seed))
	}
	svc := blogs.NewService(store, opts...)

	if len(seed) > 0 {
		if _, err := svc.Seed(ctx, seed); err != nil {
			logger.Error("failed to seed blog store", "error", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health(&handlers.HealthDeps{
		Store:       store,
		RabbitMQURL: cfg.RabbitMQURL,
	}))
	handlers.NewBlogsHandler(svc, logger).Register(mux)

	var handler http.Handler = mux
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recover(logger)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("blogdesk api started", "port", cfg.Port, "backend", cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// openStore builds the record store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blogs.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case "memory":
		return blogs.NewMemoryStore(logger), noop, nil
	case "sqlite":
		s, err := blogs.NewSQLiteStore(cfg.SQLitePath, cfg.StoreKey, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required")
		}
		s, err := blogs.OpenPostgresStore(ctx, cfg.DatabaseURL, cfg.StoreKey, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "s3":
		objects, err := storage.NewS3StorageFromEnv(ctx, cfg.AWSRegion, cfg.S3Endpoint, cfg.S3Bucket, "")
		if err != nil {
			return nil, nil, err
		}
		return blogs.NewObjectStore(objects, cfg.StoreKey+".json", logger), noop, nil
	case "minio":
		objects, err := storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioAccessKeyID,
			SecretAccessKey: cfg.MinioSecretAccessKey,
			Bucket:          cfg.MinioBucket,
			UseSSL:          cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return blogs.NewObjectStore(objects, cfg.StoreKey+".json", logger), noop, nil
	case "mongo":
		if cfg.MongoURL == "" {
			return nil, nil, errors.New("MONGO_URL is required")
		}
		s, err := blogs.OpenMongoStore(ctx, cfg.MongoURL, cfg.MongoDatabase, cfg.StoreKey, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(closeCtx)
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
