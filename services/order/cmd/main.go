package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/cache"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/config"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/db"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/kafka"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/mylogger"
	outboxRepository "github.com/Sukhmangill23/E-Commerce-Microservices/pkg/outbox/repository"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/outbox/worker"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/token"
	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/utils"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/client"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/repository"
	"github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/service"
	orderHttp "github.com/Sukhmangill23/E-Commerce-Microservices/services/order/internal/transport/http"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "order-service")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: "info",
		Env:   cfg.Env,
	})
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

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("failed to create kafka producer: %v", err)
	}

	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)
	processor := worker.NewOutboxProcessor(pool, outboxRepo, producer, logger)
	go processor.Start(ctx)

	catalogClient := client.NewHTTPClient(cfg.Catalog.URL, cfg.Catalog.Timeout, logger)

	orderRepo := repository.NewOrderRepository(pool, outboxRepo, logger)
	orderService := service.NewOrderService(
		orderRepo,
		catalogClient,
		cache.NewRedis(redisClient, logger),
		logger,
	)

	verifier := token.NewVerifier(cfg.JWT.Secret)
	handler := orderHttp.NewOrderHandler(orderService, logger)

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	orderHttp.RegisterRoutes(app, handler, verifier)

	go func() {
		log.Println("HTTP Service listening on: " + cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down order service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Error shutting down HTTP app", zap.Error(err))
	}

	if err := producer.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close kafka producer", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	pool.Close()
}
