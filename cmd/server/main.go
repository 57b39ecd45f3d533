// Command server runs the Launchlens fulfillment engine API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ananya-Vajpayee/Launchlens/internal/api/marketplace"
	"github.com/Ananya-Vajpayee/Launchlens/internal/cache"
	"github.com/Ananya-Vajpayee/Launchlens/internal/catalog"
	"github.com/Ananya-Vajpayee/Launchlens/internal/config"
	"github.com/Ananya-Vajpayee/Launchlens/internal/repository"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/accounts"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/campaign"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/matcher"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/quality"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/scheduler"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/settlement"
	"github.com/Ananya-Vajpayee/Launchlens/internal/service/summary"
	"github.com/Ananya-Vajpayee/Launchlens/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	reg := catalog.Default()
	if cfg.CatalogPath != "" {
		reg, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load catalog override")
		}
		log.Info().Str("path", cfg.CatalogPath).Msg("Loaded catalog override")
	}

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	var summaryCache cache.Cache
	if cfg.Summary.CacheEnabled {
		redisCache, err := cache.NewRedis(&cfg.Database.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		summaryCache = redisCache
		log.Info().
			Str("host", cfg.Database.Redis.Host).
			Int("port", cfg.Database.Redis.Port).
			Msg("Connected to Redis")
	}

	userRepo := repository.NewUserRepository(db)
	testRepo := repository.NewTestRepository(db)
	resultRepo := repository.NewResultRepository(db)

	accountsSvc := accounts.NewService(userRepo, reg, log)
	campaignSvc := campaign.NewService(userRepo, testRepo, resultRepo, reg, log)
	matcherSvc := matcher.NewService(userRepo, testRepo, resultRepo, log)
	summarySvc := summary.NewService(
		testRepo, resultRepo, reg,
		summaryCache, time.Duration(cfg.Summary.CacheTTLSeconds)*time.Second,
		log,
	)
	settlementSvc := settlement.NewService(
		db, testRepo, userRepo, resultRepo,
		reg, quality.NewHeuristic(), summarySvc, cfg.Rewards, log,
	)

	statsRefresher := scheduler.NewService(cfg.Scheduler, testRepo, userRepo, reg, log)
	if err := statsRefresher.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start stats refresher")
	}
	defer statsRefresher.Stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := marketplace.NewHandler(accountsSvc, campaignSvc, matcherSvc, settlementSvc, summarySvc, log)
	handler.RegisterRoutes(engine)

	engine.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
