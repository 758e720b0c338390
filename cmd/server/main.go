package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atelier-lumen/storefront/internal/auth"
	"github.com/atelier-lumen/storefront/internal/cache"
	"github.com/atelier-lumen/storefront/internal/config"
	"github.com/atelier-lumen/storefront/internal/consumer"
	"github.com/atelier-lumen/storefront/internal/db"
	"github.com/atelier-lumen/storefront/internal/discovery"
	"github.com/atelier-lumen/storefront/internal/handlers"
	"github.com/atelier-lumen/storefront/internal/inventory"
	"github.com/atelier-lumen/storefront/internal/messaging"
	"github.com/atelier-lumen/storefront/internal/orders"
	"github.com/atelier-lumen/storefront/internal/publisher"
)

func main() {
	cfg := config.Load()

	// Connect to PostgreSQL
	database, err := db.NewPostgresDB(cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Connect to Redis
	redisCache, err := cache.NewRedisCache(cfg.RedisAddr, 5*time.Minute)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Connect to RabbitMQ
	rabbitMQ, err := messaging.NewRabbitMQ(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitMQ.Close()

	orderPublisher, err := publisher.NewOrderPublisher(rabbitMQ)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}

	// Register with Consul when configured
	var consul *discovery.ConsulClient
	if cfg.ConsulAddr != "" {
		consul, err = discovery.NewConsulClient(cfg.ConsulAddr)
		if err != nil {
			log.Fatalf("Failed to connect to Consul: %v", err)
		}

		port, _ := strconv.Atoi(cfg.Port)
		err = consul.Register(discovery.ServiceConfig{
			Name: cfg.ServiceName,
			ID:   cfg.ServiceID,
			Port: port,
			Tags: []string{"api", "storefront"},
		})
		if err != nil {
			log.Fatalf("Failed to register service: %v", err)
		}
	}

	// Deregister on shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		if consul != nil {
			consul.Deregister(cfg.ServiceID)
		}
		os.Exit(0)
	}()

	// Repositories
	itemRepo := db.NewItemRepository(database)
	cachedItems := db.NewCachedItemRepository(itemRepo, redisCache)
	orderRepo := db.NewOrderRepository(database)
	attemptRepo := db.NewAttemptRepository(database)
	settingsRepo := db.NewSettingsRepository(database)

	// Services
	credentials := auth.NewCredentialManager(settingsRepo, cfg.AdminUsername, cfg.AdminPassword)
	if err := credentials.Bootstrap(context.Background()); err != nil {
		log.Fatalf("Failed to bootstrap admin credentials: %v", err)
	}
	guard := auth.NewGuard(attemptRepo, credentials)
	sessions := auth.NewSessionManager([]byte(cfg.SessionSecret), auth.SessionTTL)
	ledger := inventory.NewLedger(cachedItems)
	orderService := orders.NewService(orderRepo, ledger, orderPublisher)

	// Handlers
	ordersHandler := handlers.NewOrdersHandler(orderService)
	authHandler := handlers.NewAuthHandler(guard, sessions, credentials)
	itemsHandler := handlers.NewItemsHandler(cachedItems)
	miscHandler := handlers.NewMiscHandler(database.Conn)

	// Start cache-invalidation consumer
	go startCacheInvalidator(rabbitMQ, redisCache)

	// Setup router
	router := gin.Default()
	requireSession := handlers.RequireSession(sessions)

	router.GET("/api/health", miscHandler.Health)

	router.GET("/api/items", itemsHandler.ListItems)
	router.POST("/api/items", requireSession, itemsHandler.CreateItem)

	router.POST("/api/orders", ordersHandler.PlaceOrder)
	router.GET("/api/orders", requireSession, ordersHandler.ListOrders)
	router.PUT("/api/orders/:id", requireSession, ordersHandler.UpdateShipping)
	router.POST("/api/orders/backfill", requireSession, ordersHandler.Backfill)

	router.POST("/api/payments", miscHandler.CreatePayment)

	router.POST("/api/auth/login", authHandler.Login)
	router.GET("/api/auth/me", requireSession, authHandler.Me)
	router.POST("/api/auth/logout", authHandler.Logout)
	router.POST("/api/auth/change-password", requireSession, authHandler.ChangePassword)

	// Start server
	log.Printf("🚀 Storefront starting on http://localhost:%s", cfg.Port)
	router.Run(":" + cfg.Port)
}

func startCacheInvalidator(mq *messaging.RabbitMQ, redisCache *cache.RedisCache) {
	if err := mq.DeclareQueue(publisher.OrderCreatedQueue); err != nil {
		log.Fatalf("Failed to declare queue: %v", err)
	}

	messages, err := mq.Consume(publisher.OrderCreatedQueue)
	if err != nil {
		log.Fatalf("Failed to consume messages: %v", err)
	}

	invalidator := consumer.NewCacheInvalidator(redisCache)
	invalidator.ProcessOrderCreated(messages)
}
