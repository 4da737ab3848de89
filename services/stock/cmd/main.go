package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/config"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/db"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/mylogger"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/utils"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/repository"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/service"
	stockHTTP "github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/transport/http"
	"github.com/leandroAntunes00/e-commerce-microservice/services/stock/internal/transport/rabbitmq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "stock-service")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{Level: "Info", Env: cfg.Env})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	connManager := messaging.NewConnectionManager(cfg.RabbitMQ, logger)
	publisher := messaging.NewPublisher(connManager, cfg.RabbitMQ, logger)

	productRepo := repository.NewProductRepository(pool, logger)
	stockService := service.NewCachedStockService(
		service.NewStockService(productRepo, publisher, logger),
		redisClient,
	)

	consumer := rabbitmq.NewConsumer(stockService, logger)

	var workers sync.WaitGroup
	for _, worker := range consumer.Workers(connManager, cfg.RabbitMQ) {
		workers.Add(1)
		go func(w *messaging.ConsumerWorker) {
			defer workers.Done()
			w.Run(ctx)
		}(worker)
	}

	app := fiber.New()
	stockHTTP.SetupRoutes(app, stockHTTP.NewProductHandler(stockService, logger))

	go func() {
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down stock service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "HTTP shutdown failed", zap.Error(err))
	}

	workers.Wait()

	if err := connManager.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close broker connection", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	pool.Close()
}
