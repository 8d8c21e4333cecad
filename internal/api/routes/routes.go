// server/internal/api/routes/routes.go
package routes

import (
	"time"

	"gps-fleet-api-server/config"
	"gps-fleet-api-server/internal/api/handlers"
	"gps-fleet-api-server/internal/api/middleware"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/service"
	"gps-fleet-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dependencies are the components the router hands to its handlers.
type Dependencies struct {
	Config   config.Config
	Tracking *service.TrackingService
	Accounts *service.AccountService
	Hub      *socket.Hub
	Logger   *zap.Logger
}

// SetupRouter wires handlers, middleware and routes.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	secret := []byte(cfg.JWT.Secret)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.Server.FrontendURL != "" {
		corsConfig.AllowOrigins = []string{cfg.Server.FrontendURL}
	} else {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	locationHandler := &handlers.LocationHandler{Service: deps.Tracking}
	vehicleHandler := &handlers.VehicleHandler{Service: deps.Tracking}
	userHandler := &handlers.UserHandler{Accounts: deps.Accounts}
	adminHandler := &handlers.AdminHandler{Accounts: deps.Accounts}
	webSocketHandler := &handlers.WebSocketHandler{
		Hub:     deps.Hub,
		Service: deps.Tracking,
		Secret:  secret,
		Logger:  deps.Logger,
	}

	router.GET("/health", handlers.Health)
	router.GET("/ws/vehicle/:id", webSocketHandler.ServeVehicle)

	api := router.Group("/api")
	{
		// Devices authenticate by device_id only.
		ingest := []gin.HandlerFunc{}
		if cfg.RateLimit.RequestsPerSecond > 0 {
			limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
			ingest = append(ingest, middleware.IPRateLimitMiddleware(limiter, deps.Logger))
		}
		ingest = append(ingest, locationHandler.UpdateLocation)
		api.Any("/update_location", ingest...)

		api.POST("/auth/login", userHandler.Login)

		protected := api.Group("/")
		protected.Use(middleware.Authenticate(secret))
		{
			protected.GET("/vehicles", vehicleHandler.ListVehicles)
			protected.GET("/profile", userHandler.Profile)
			protected.PUT("/profile", userHandler.UpdateProfile)

			vehicle := protected.Group("/vehicle/:id")
			{
				vehicle.GET("", vehicleHandler.GetVehicle)
				vehicle.GET("/history", vehicleHandler.History)
				vehicle.POST("/history/archive", vehicleHandler.ArchiveHistory)
				vehicle.POST("/shutdown", vehicleHandler.ToggleShutdown)
				vehicle.POST("/audio", vehicleHandler.ToggleAudio)
			}
		}

		admin := api.Group("/admin")
		admin.Use(middleware.Authenticate(secret))
		admin.Use(middleware.Authorize(models.RoleAdmin))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.PUT("/users/:id", adminHandler.UpdateUser)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)

			vehicles := admin.Group("/vehicles")
			{
				vehicles.GET("", adminHandler.ListVehicles)
				vehicles.POST("", adminHandler.CreateVehicle)
				vehicles.PUT("/:id", adminHandler.UpdateVehicle)
				vehicles.DELETE("/:id", adminHandler.DeleteVehicle)
			}
		}
	}

	return router
}
