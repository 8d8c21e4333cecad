// server/cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gps-fleet-api-server/config"
	"gps-fleet-api-server/internal/api/routes"
	"gps-fleet-api-server/internal/database"
	"gps-fleet-api-server/internal/mirror"
	"gps-fleet-api-server/internal/notify"
	"gps-fleet-api-server/internal/repository"
	"gps-fleet-api-server/internal/s3"
	"gps-fleet-api-server/internal/service"
	"gps-fleet-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	// 2. Logger
	var logger *zap.Logger
	if cfg.Server.Debug {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
		gin.SetMode(gin.ReleaseMode)
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Invalid timezone", zap.Error(err))
	}

	// 3. Relational store
	db, err := database.Connect(cfg.Database, loc, cfg.Server.Debug, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	if err := database.SeedAdmin(context.Background(), db, cfg.Admin, logger); err != nil {
		logger.Fatal("Failed to seed admin", zap.Error(err))
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// 4. Optional components. Each one left unconfigured disables its feature.
	var mirrorStore service.Mirror
	if cfg.Mongo.URI != "" {
		store, err := mirror.Connect(appCtx, cfg.Mongo)
		if err != nil {
			logger.Warn("Mongo mirror unavailable, continuing without it", zap.Error(err))
		} else {
			mirrorStore = store
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = store.Close(ctx)
			}()
			logger.Info("Mongo mirror connected", zap.String("db", cfg.Mongo.DBName))
		}
	}

	hub := socket.NewHub(logger)
	defer hub.Close()

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(appCtx).Err(); err != nil {
			logger.Warn("Redis unavailable, broadcasting locally only", zap.Error(err))
		} else {
			relay := socket.NewRedisRelay(rdb, cfg.Redis.ChannelPrefix, logger)
			hub.SetRelay(relay)
			go relay.Listen(appCtx, hub)
			logger.Info("Redis relay enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var notifier service.Notifier
	if cfg.MQTT.BrokerURL != "" {
		client := notify.BuildMQTTClient(cfg.MQTT, logger)
		token := client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			notifier = notify.NewMQTTNotifier(client, cfg.MQTT)
			defer client.Disconnect(250)
			logger.Info("MQTT connected", zap.String("broker", cfg.MQTT.BrokerURL))
		} else {
			// stop the background connect retries
			client.Disconnect(0)
			logger.Warn("MQTT broker unavailable, device pushes disabled", zap.Error(token.Error()))
		}
	}

	var audio service.AudioLinker
	var archiver service.Archiver
	if cfg.S3.Bucket != "" {
		uploader, err := s3.NewUploader(appCtx, cfg.S3)
		if err != nil {
			logger.Warn("S3 unavailable, audio links are simulated and archives disabled", zap.Error(err))
		} else {
			audio = uploader
			archiver = uploader
		}
	}

	// 5. Services
	vehicles := repository.NewVehicleRepository(db)
	tracking := service.NewTrackingService(service.Dependencies{
		Vehicles:          vehicles,
		History:           repository.NewHistoryRepository(db),
		Mirror:            mirrorStore,
		Publisher:         hub,
		Notifier:          notifier,
		Audio:             audio,
		Archiver:          archiver,
		Location:          loc,
		SideEffectTimeout: cfg.SideEffects.Timeout,
		Logger:            logger,
	})
	accounts := service.NewAccountService(service.AccountDependencies{
		Users:             repository.NewUserRepository(db),
		Vehicles:          vehicles,
		Mirror:            mirrorStore,
		JWTSecret:         []byte(cfg.JWT.Secret),
		JWTExpiration:     cfg.JWT.Expiration,
		SideEffectTimeout: cfg.SideEffects.Timeout,
		Logger:            logger,
	})

	// 6. Router
	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Tracking: tracking,
		Accounts: accounts,
		Hub:      hub,
		Logger:   logger,
	})

	// 7. Start server with graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Starting API server", zap.String("port", cfg.Server.Port), zap.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Live sessions are hijacked connections, Shutdown does not wait for them.
	hub.Close()
	stopApp()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}
