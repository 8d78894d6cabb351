package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"attendance-backend/internal/config"
	"attendance-backend/internal/database"
	"attendance-backend/internal/events"
	"attendance-backend/internal/geocode"
	httpapi "attendance-backend/internal/http"
	logpkg "attendance-backend/internal/logger"
	"attendance-backend/internal/repository"
	"attendance-backend/internal/service"
	"attendance-backend/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logpkg.New(cfg.Log.Level, cfg.Log.Format, "attendance-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting attendance server")

	db, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, status cache and events degraded", zap.Error(err))
	}
	pingCancel()

	kv := store.NewRedisKV(redisClient)
	publisher := events.NewPublisher(redisClient, log)
	geocoder := geocode.NewNominatimClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Timeout, log)

	attendanceRepo := repository.NewPostgresAttendanceRepository(db)
	samplesRepo := repository.NewPostgresLocationSamplesRepository(db)

	attendanceSvc := service.NewAttendanceService(attendanceRepo, kv, publisher, cfg.Workday, log)
	trackingSvc := service.NewTrackingService(attendanceRepo, samplesRepo, geocoder, publisher, log)

	router := httpapi.NewRouter(log)
	router.RegisterAttendanceRoutes(httpapi.NewAttendanceHandler(attendanceSvc, log))
	router.RegisterTrackingRoutes(httpapi.NewTrackingHandler(trackingSvc, log))
	router.RegisterHealthRoutes()

	server := service.NewServer(cfg.HTTP.Addr, router, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping server", zap.Error(err))
	}

	log.Info("Attendance server stopped")
}
