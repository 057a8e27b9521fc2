package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staybid/internal/api/handlers"
	apimiddleware "staybid/internal/api/middleware"
	"staybid/internal/config"
	"staybid/internal/hub"
	"staybid/internal/infrastructure/leader"
	"staybid/internal/infrastructure/mysql"
	redisinfra "staybid/internal/infrastructure/redis"
	"staybid/internal/services"
	"staybid/pkg/logger"
	"staybid/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("Configuration loaded", "config", cfg.GetConfigString())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := utils.InitializeMySQL(ctx, cfg)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()
	log.Info("Connected to MySQL")

	// Initialize repositories
	requestRepo := mysql.NewMySQLRequestRepository(db)
	auctionRepo := mysql.NewMySQLAuctionRepository(db)
	bidRepo := mysql.NewMySQLBidRepository(db)

	// Marketplace collaborators share the same database
	listings := mysql.NewMySQLListingDirectory(db)
	users := mysql.NewMySQLUserDirectory(db)
	orders := mysql.NewMySQLOrderService(db)

	// Initialize notification hub
	notificationHub := hub.New(hub.Options{
		HeartbeatInterval: cfg.Hub.HeartbeatInterval,
		ReapInterval:      cfg.Hub.ReapInterval,
	}, log)
	notificationHub.Start()

	// Relay local broadcasts to peer instances through Redis pub/sub
	relay := redisinfra.NewEventRelay(rdb, cfg.Instance.ID, log)
	broadcaster := redisinfra.NewRelayBroadcaster(notificationHub, relay, log)

	go func() {
		if err := relay.Run(ctx, notificationHub); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event relay stopped unexpectedly", "error", err)
		}
	}()

	// Initialize leader election
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	// Initialize services
	requestService := services.NewRequestService(requestRepo, auctionRepo, listings, users, log)
	auctionService := services.NewAuctionService(auctionRepo, bidRepo, listings, users, orders, broadcaster, log)

	// Initialize sweeper
	sweeper := services.NewSweeper(auctionService, leaderElection, cfg.Instance.ID, cfg.Sweep.Interval, log)
	if err := sweeper.Start(ctx); err != nil {
		log.Error("Failed to start sweeper", "error", err)
		os.Exit(1)
	}

	// Try to become leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(ctx, cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
			} else if became {
				log.Info("Became sweep leader", "instance_id", cfg.Instance.ID)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Second):
			}
		}
	}()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestedWith,
			"X-User-ID",
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	auctionHandler := handlers.NewAuctionHandler(requestService, auctionService, log)
	auctionHandler.Register(e.Group("/api/v1"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "staybid",
			"timestamp": time.Now().Format(time.RFC3339),
			"instance":  cfg.Instance.ID,
		})
	})

	// The stream server runs on its own port; websocket upgrades bypass the
	// echo middleware chain, so they get a plain mux router.
	streamHandler := handlers.NewStreamHandler(auctionRepo, notificationHub,
		cfg.Hub.SinkQueueSize, cfg.Hub.WriteTimeout, log)

	streamRouter := mux.NewRouter()
	streamRouter.Use(apimiddleware.CORS)
	streamHandler.Register(streamRouter)
	streamRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok","service":"staybid-stream"}`)
	})

	streamServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Stream.Port),
		Handler: streamRouter,
	}

	go func() {
		log.Info("Starting stream server", "port", cfg.Stream.Port)
		if err := streamServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Stream server failed", "error", err)
			os.Exit(1)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting API server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down staybid...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop sweeper", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}

	cancel() // stops the relay and leadership loops

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("API server forced to shutdown", "error", err)
	}
	if err := streamServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Stream server forced to shutdown", "error", err)
	}

	notificationHub.Shutdown()

	log.Info("Staybid stopped")
}
