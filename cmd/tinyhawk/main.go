package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tempizhere/tinyhawk/internal/app"
	"github.com/tempizhere/tinyhawk/internal/cache"
	"github.com/tempizhere/tinyhawk/internal/config"
	"github.com/tempizhere/tinyhawk/internal/geo"
	grpcserver "github.com/tempizhere/tinyhawk/internal/grpc"
	"github.com/tempizhere/tinyhawk/internal/grpc/proto"
	"github.com/tempizhere/tinyhawk/internal/log"
	"github.com/tempizhere/tinyhawk/internal/middleware"
	"github.com/tempizhere/tinyhawk/internal/repository"
	"github.com/tempizhere/tinyhawk/internal/service"
	"github.com/tempizhere/tinyhawk/internal/worker"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Параметры фонового конвейера записи переходов
const (
	clickWorkers   = 2
	clickQueueSize = 256
)

func main() {
	// Получаем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	// Создаём логгер
	logger := log.NewLogger()
	defer logger.Sync()

	// Подключаемся к базе данных, если указан DSN
	db, err := app.NewDB(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if db != nil {
			db.Close()
		}
	}()

	// Выбираем хранилище: PostgreSQL, файл или память
	var repo repository.Repository
	switch {
	case db != nil:
		repo, err = repository.NewPostgresRepository(db, logger)
		if err != nil {
			logger.Fatal("Failed to create postgres repository", zap.Error(err))
		}
		logger.Info("Using PostgreSQL repository")
	case cfg.FileStoragePath != "":
		repo, err = repository.NewFileRepository(cfg.FileStoragePath, logger)
		if err != nil {
			logger.Fatal("Failed to create file repository", zap.Error(err))
		}
		logger.Info("Using file repository", zap.String("path", cfg.FileStoragePath))
	default:
		repo = repository.NewMemoryRepository()
		logger.Info("Using in-memory repository")
	}

	// Кэш необязателен: без Redis продолжаем работать напрямую с хранилищем
	var linkCache cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
		} else {
			linkCache = redisCache
			defer redisCache.Close()
		}
	}

	// Запускаем фоновый конвейер записи переходов
	geoProvider := geo.NewProvider(cfg.GeoProvider, cfg.GeoAPIKey, logger)
	recorder := worker.NewRecorder(repo, geoProvider, logger, clickWorkers, clickQueueSize)

	svc := service.NewService(repo, recorder, linkCache, cfg.BaseURL, logger)
	appInstance := app.NewApp(svc, db, logger)

	// Создаём маршрутизатор
	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.GzipMiddleware)

	// Регистрируем обработчики
	r.Post("/api/shorten", appInstance.HandleShorten)
	r.Get("/api/stats/{code}", appInstance.HandleStats)
	r.Get("/api/qr/{code}", appInstance.HandleQRCode)
	r.Get("/api/health", appInstance.HandleHealth)
	r.Get("/ping", appInstance.HandlePing)
	r.Get("/{code}", appInstance.HandleRedirect)

	srv := &http.Server{
		Addr:    cfg.RunAddr,
		Handler: r,
	}

	// Контекст завершается по сигналу остановки
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", cfg.RunAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// gRPC сервер поднимается только при заданном адресе
	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("Failed to listen for gRPC", zap.Error(err))
		}
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(logger)))
		proto.RegisterShortenerServiceServer(grpcSrv, grpcserver.NewServer(svc, db, logger))
		go func() {
			logger.Info("Starting gRPC server", zap.String("address", cfg.GRPCAddr))
			if err := grpcSrv.Serve(listener); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping servers")
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}

	// Останавливаем конвейер: уже поставленные события дописываются,
	// незавершённое обогащение просто остаётся без геоданных
	recorder.Stop()

	logger.Info("Server stopped")
}
