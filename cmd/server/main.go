package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/binaryworks/medilink/adapters/memory"
	"github.com/binaryworks/medilink/adapters/mongo"
	"github.com/binaryworks/medilink/domain/repositories"
	"github.com/binaryworks/medilink/internal/api"
	"github.com/binaryworks/medilink/internal/auth"
	"github.com/binaryworks/medilink/internal/config"
	"github.com/binaryworks/medilink/internal/realtime"
	"github.com/binaryworks/medilink/internal/websocket"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Storage adapters; the in-memory fallback keeps development working
	// without a database
	var (
		products     repositories.ProductRepository
		doctors      repositories.DoctorRepository
		appointments repositories.AppointmentRepository
		users        repositories.UserRepository
	)
	mongoClient, err := mongo.NewClient(cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		logger.Warn("MongoDB unavailable, using in-memory storage", zap.Error(err))
		products = memory.NewProductRepository()
		doctors = memory.NewDoctorRepository()
		appointments = memory.NewAppointmentRepository()
		users = memory.NewUserRepository()
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongoClient.Close(ctx)
		}()
		products = mongo.NewProductRepository(mongoClient.Database)
		doctors = mongo.NewDoctorRepository(mongoClient.Database)
		appointments = mongo.NewAppointmentRepository(mongoClient.Database)
		users = mongo.NewUserRepository(mongoClient.Database)
	}

	authManager := auth.NewManager(cfg.JWTSecret)

	// One realtime session per connected browser client
	hub := websocket.NewHub(func() websocket.AssistantSession {
		return realtime.NewClient(
			realtime.WithURL(cfg.RealtimeURL),
			realtime.WithToken(cfg.RealtimeToken),
			realtime.WithLogger(logger),
		)
	}, logger)
	go hub.Run()

	cleanup := websocket.NewIdleCleanupService(hub, 10*time.Minute, logger)
	cleanup.Start()
	defer cleanup.Stop()

	// Initialize API routes
	handler := api.NewHandler(products, doctors, appointments, users, authManager, hub, logger)
	handler.InitRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
