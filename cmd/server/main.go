package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"azure-face-go/config"
	"azure-face-go/internal/api/handlers"
	"azure-face-go/internal/core/imagesource"
	"azure-face-go/internal/core/processor"
	"azure-face-go/internal/core/registry"
	"azure-face-go/internal/db"
	"azure-face-go/internal/db/repository"
	"azure-face-go/internal/integrations/homeassistant"
	"azure-face-go/internal/integrations/mqtt"
	"azure-face-go/internal/logger"
	"azure-face-go/internal/server/sse"
	"azure-face-go/internal/services"
	"azure-face-go/internal/services/cleanup"
	"azure-face-go/internal/util/timezone"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const configPath = "/config/config.yaml"

func main() {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	timezone.Initialize(cfg.Server.Timezone)

	// Initialize database connection
	log.Info("Initializing database...")
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	journal := repository.NewSQLiteRepository(db.DB)

	// Build a client for every configured Azure profile
	reg, err := registry.NewFromConfig(cfg.Azure)
	if err != nil {
		log.Fatalf("Failed to build Azure profile registry: %v", err)
	}

	hub := sse.NewHub()
	go hub.Run()

	// MQTT and Home Assistant are optional; without them the notifier
	// degrades to SSE only
	var mqttClient *mqtt.Client
	var publisher *homeassistant.Publisher
	if cfg.MQTT.Enabled {
		mqttClient = mqtt.NewClient(cfg.MQTT)
		publisher = homeassistant.NewPublisher(mqttClient, cfg)
	} else {
		log.Info("MQTT is disabled in config")
	}

	notifier := services.NewNotifierService(hub, publisher)
	resolver := imagesource.NewResolver(cfg.Cameras)
	faceService := services.NewFaceService(reg, resolver, notifier, journal, cfg)

	pool := processor.NewWorkerPool(faceService)

	if mqttClient != nil {
		mqttClient.RegisterHandler(services.NewCommandBridge(pool))
		if err := mqttClient.Start(); err != nil {
			log.Warnf("Failed to start MQTT client: %v. Continuing without MQTT.", err)
		} else {
			publisher.StartResetTimers()

			discovery := homeassistant.NewDiscoveryManager(mqttClient, cfg)
			if err := discovery.RegisterCameras(); err != nil {
				log.Warnf("Failed to register Home Assistant sensors: %v", err)
			}
			if err := discovery.PublishAvailability(true); err != nil {
				log.Warnf("Failed to publish availability: %v", err)
			}
		}
	}

	// Probe every profile once at startup so misconfigured keys surface in
	// the log immediately. Failures are not fatal.
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 15*time.Second)
	faceService.TestConnections(bootCtx)
	cancelBoot()

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	cleanupService := cleanup.NewCleanupService(journal, cfg.Cleanup)
	go cleanupService.Start(cleanupCtx)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(cors.Default())

	apiHandler := handlers.NewAPIHandler(cfg, faceService, pool, reg, hub, journal, mqttClient)
	apiHandler.RegisterRoutes(router.Group("/api"))

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Infof("Starting server on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}

	pool.Shutdown()
	if mqttClient != nil {
		mqttClient.Stop()
	}
	cancelCleanup()

	log.Info("Server stopped.")
}
