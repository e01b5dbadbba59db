package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/av-pipeline-api/config"
	"github.com/kendall-kelly/av-pipeline-api/controllers"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/metrics"
	"github.com/kendall-kelly/av-pipeline-api/middleware"
	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/kendall-kelly/av-pipeline-api/services"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.GoEnv,
		ServiceName: cfg.ServiceName,
		File:        cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting AV Pipeline API server...")
	config.SetConfig(cfg)

	if err := config.ConnectDatabase(cfg); err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := models.AutoMigrate(config.GetDB()); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	zapLogger.Info("Database migration completed successfully")

	if _, err := services.InitFileStorage(context.Background(), cfg); err != nil {
		zapLogger.Fatal("Failed to initialize file storage", zap.Error(err))
	}
	zapLogger.Info("File storage ready", zap.String("provider", cfg.StorageProvider))

	if err := controllers.RegisterValidators(); err != nil {
		zapLogger.Fatal("Failed to register validators", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := setupRouter(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to set up routes", zap.Error(err))
	}

	port := ":" + cfg.Port
	zapLogger.Info("Server is running", zap.String("addr", "http://localhost"+port))
	if err := router.Run(port); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if strings.TrimSpace(origin) == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// setupRouter wires middleware and every route. The pipeline API sits behind Auth0 when
// AUTH0_DOMAIN is configured; health, database status and metrics stay public.
func setupRouter(cfg *config.Config) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.Middleware())
	router.Use(metrics.NewHTTPMetrics(cfg.ServiceName).Middleware())
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
		v1.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := v1.Group("")
	if cfg.AuthEnabled() {
		ensureToken, err := middleware.EnsureValidToken(cfg)
		if err != nil {
			return nil, err
		}
		api.Use(ensureToken)
		if cfg.Auth0WriteScope != "" {
			api.Use(middleware.RequireWriteScope(cfg.Auth0WriteScope))
		}
	}

	controllers.RegisterRoutes(api)
	if cfg.StorageProvider == config.StorageLocal {
		controllers.RegisterFileRoutes(api)
	}

	return router, nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "AV Pipeline API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database is not connected",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		logger.FromGin(c).Error("Database ping failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
