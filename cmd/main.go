package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"ecommerce-backend/internal/api"
	"ecommerce-backend/internal/config"
	"ecommerce-backend/internal/payment"
	"ecommerce-backend/internal/repository"
	"ecommerce-backend/internal/service"
	"ecommerce-backend/migrations"
)

func connectDB(dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				return db, nil
			}
		}
		log.Printf("Retry %d: failed to connect to DB: %v", i+1, err)
		time.Sleep(3 * time.Second)
	}
	return nil, err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectDB(cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	if err := migrations.AutoMigrateUsers(db, 3); err != nil {
		log.Fatalf("Failed to migrate users table: %v", err)
	}
	if err := migrations.AutoMigrateProducts(db, 3); err != nil {
		log.Fatalf("Failed to migrate products table: %v", err)
	}
	if err := migrations.AutoMigrateOrders(db, 3); err != nil {
		log.Fatalf("Failed to migrate orders tables: %v", err)
	}
	if err := migrations.AutoMigrateWebhookEvents(db, 3); err != nil {
		log.Fatalf("Failed to migrate webhook_events table: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	kafkaWriter := config.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
	gateway := payment.NewClient(cfg.StripeBaseURL, cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.GatewayTimeout)

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	userService := service.NewUserService(userRepo, cfg.JWTSecret)
	productService := service.NewProductService(productRepo, rdb)
	orderService := service.NewOrderService(orderRepo, productService, gateway, kafkaWriter)
	webhookService := service.NewWebhookService(eventRepo, gateway,
		service.NewSuccessPaymentHandler(orderService),
		service.NewFailedPaymentHandler(orderService),
		service.NewCancelledPaymentHandler(orderService),
	)

	if err := productService.Seed(context.Background()); err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	// Ledger retention sweep; the provider stops replaying events after the
	// retention window.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := eventRepo.PurgeOlderThan(ctx, time.Now().Add(-cfg.WebhookRetention)); err != nil {
				log.Printf("Failed to purge webhook events: %v", err)
			}
			cancel()
		}
	}()

	userHandler := api.NewUserHandler(userService)
	productHandler := api.NewProductHandler(productService)
	orderHandler := api.NewOrderHandler(orderService)
	webhookHandler := api.NewWebhookHandler(webhookService)

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(20),
				Burst:     60,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	e.POST("/auth/register", userHandler.Register)
	e.POST("/auth/login", userHandler.Login)

	e.GET("/products", productHandler.ListProducts)
	e.GET("/products/warmup-cache", productHandler.PreWarmupCache)
	e.GET("/products/:id", productHandler.GetProduct)

	// Authenticated by the provider signature, not by bearer token.
	e.POST("/webhooks/payments", webhookHandler.HandlePaymentWebhook)

	authRequired := echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(service.JwtCustomClaims)
		},
	})

	users := e.Group("/users")
	users.Use(authRequired)
	users.GET("/me", userHandler.Me)

	orders := e.Group("/orders")
	orders.Use(authRequired)
	orders.POST("", orderHandler.CreateOrder)
	orders.GET("", orderHandler.ListOrders)
	orders.GET("/:id", orderHandler.GetOrder)
	orders.POST("/:id/cancel", orderHandler.CancelOrder)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "ecommerce-backend",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.Logger.Fatal(e.Start(cfg.HTTPAddr))
}
