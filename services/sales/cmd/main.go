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
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/client"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/repository"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/service"
	salesHTTP "github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/transport/http"
	"github.com/leandroAntunes00/e-commerce-microservice/services/sales/internal/transport/rabbitmq"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "sales-service")
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

	connManager := messaging.NewConnectionManager(cfg.RabbitMQ, logger)
	publisher := messaging.NewPublisher(connManager, cfg.RabbitMQ, logger)

	orderRepo := repository.NewOrderRepository(pool, logger)
	stockClient := client.NewStockClient(cfg.Services.StockURL, logger)
	orderService := service.NewOrderService(orderRepo, stockClient, publisher, logger)

	consumer := rabbitmq.NewConsumer(orderService, logger)

	var workers sync.WaitGroup
	for _, worker := range consumer.Workers(connManager, cfg.RabbitMQ) {
		workers.Add(1)
		go func(w *messaging.ConsumerWorker) {
			defer workers.Done()
			w.Run(ctx)
		}(worker)
	}

	app := fiber.New()
	salesHTTP.SetupRoutes(app, salesHTTP.NewOrderHandler(orderService, logger))

	go func() {
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down sales service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "HTTP shutdown failed", zap.Error(err))
	}

	// Consumers must be fully stopped before the shared connection goes away.
	workers.Wait()

	if err := connManager.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close broker connection", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	pool.Close()
}
