package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fiftydrive/fifty-drive-backend/internal/config"
	"github.com/fiftydrive/fifty-drive-backend/internal/database"
	"github.com/fiftydrive/fifty-drive-backend/internal/dispatch"
	"github.com/fiftydrive/fifty-drive-backend/internal/earnings"
	"github.com/fiftydrive/fifty-drive-backend/internal/events"
	"github.com/fiftydrive/fifty-drive-backend/internal/geo"
	"github.com/fiftydrive/fifty-drive-backend/internal/handlers"
	"github.com/fiftydrive/fifty-drive-backend/internal/logging"
	"github.com/fiftydrive/fifty-drive-backend/internal/middleware"
	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
	"github.com/fiftydrive/fifty-drive-backend/internal/ratings"
	"github.com/fiftydrive/fifty-drive-backend/internal/services"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	// Store selection: Postgres when a DSN is configured, in-memory
	// otherwise (local development).
	var store orders.Store
	if cfg.PGDSN != "" {
		db, err := database.InitDB(cfg.PGDSN)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get database instance: %v", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
		store = orders.NewGormStore(db)
	} else {
		logger.Warn("PG_DSN not set, using in-memory store")
		store = orders.NewMemoryStore()
	}

	if err := services.InitRedis(cfg.RedisURL); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	hub := services.NewHub(logger)
	go hub.Run()

	estimator, err := geo.NewEstimator(cfg.GoogleMapsAPIKey,
		geo.Coord{Lat: cfg.CityCenterLat, Lng: cfg.CityCenterLng}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize geo estimator: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	notifier := services.NewOrderNotifier(hub)
	svc := dispatch.NewService(store, cfg.Rates, estimator, notifier, producer, logger)
	ledger := earnings.NewLedger(store)
	aggregator := ratings.NewAggregator(store)

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))
	r.Use(middleware.MetricsMiddleware())

	r.Static("/uploads", "uploads")
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(store))
			auth.POST("/login", handlers.Login(store))
		}

		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/me", handlers.CurrentUser(store))

			driver := protected.Group("/driver")
			driver.Use(middleware.RequireRole(models.RoleDriver))
			{
				driver.POST("/profile", handlers.CreateDriverProfile(store))
				driver.POST("/vehicle-photo", handlers.UploadVehiclePhoto(store))
				driver.POST("/availability", handlers.SetAvailability(store))
				driver.GET("/stats", handlers.DriverStats(ledger))
				driver.GET("/earnings", handlers.DriverEarnings(ledger))
			}

			ordersGroup := protected.Group("/orders")
			{
				ordersGroup.POST("", handlers.CreateOrder(svc))
				ordersGroup.POST("/estimate", handlers.EstimatePrice(cfg.Rates, estimator))
				ordersGroup.GET("/pending", middleware.RequireRole(models.RoleDriver), handlers.ListPendingOrders(svc))
				ordersGroup.GET("/active", handlers.ActiveOrder(svc))
				ordersGroup.GET("/history", handlers.OrderHistory(svc))
				ordersGroup.GET("/:id", handlers.GetOrder(svc))
				ordersGroup.POST("/:id/accept", middleware.RequireRole(models.RoleDriver), handlers.AcceptOrder(svc))
				ordersGroup.PATCH("/:id/status", handlers.AdvanceOrder(svc))
				ordersGroup.POST("/:id/complete", handlers.CompleteOrder(svc))
				ordersGroup.POST("/:id/cancel", handlers.CancelOrder(svc))
				ordersGroup.POST("/:id/rate", handlers.RateOrder(aggregator))
			}

			protected.GET("/drivers/available", handlers.ListAvailableDrivers(store))
		}
	}

	logger.Info("starting server", "addr", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
