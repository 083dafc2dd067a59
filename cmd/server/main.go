package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"veracity-service/internal/classifier"
	"veracity-service/internal/config"
	"veracity-service/internal/handler"
	"veracity-service/internal/media"
	"veracity-service/internal/repository"
	"veracity-service/internal/scrape"
	"veracity-service/internal/service"
	"veracity-service/internal/signal"
	"veracity-service/internal/social"
	"veracity-service/internal/social/facebook"
	"veracity-service/internal/social/instagram"
	"veracity-service/internal/social/twitter"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Veracity Service...", zap.String("config", *configPath))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize text classifier (multi-provider with rate limiting)
	textClassifier, err := classifier.NewMultiProviderClient(classifier.MultiProviderConfig{
		Providers:   cfg.Providers,
		MaxFailures: cfg.MaxFailuresBeforeSwitch,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize classifier", zap.Error(err))
	}
	defer textClassifier.Close()

	// Initialize repository
	if cfg.Database.Type == repository.TypeSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	repo, err := repository.NewRecordRepository(cfg.Database.Type, cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// Primary analyzers
	extractor, err := scrape.New(cfg.Scraper, logger)
	if err != nil {
		logger.Fatal("Failed to initialize scraper", zap.Error(err))
	}

	textSignal := signal.NewTextSignal(textClassifier, logger)
	analyzers := service.Analyzers{
		Text: textSignal,
		Link: signal.NewLinkSignal(extractor, textSignal, logger),
		Image: signal.NewImageSignal(media.FileDecoder{}, signal.ImageOptions{
			Scorer:            cfg.Media.Histogram,
			EditingSignatures: cfg.Media.EditingSignatures,
			EditingPenalty:    *cfg.Media.EditingPenalty,
		}, logger),
		Video: signal.NewVideoSignal(cfg.Media.FFmpeg, signal.VideoOptions{
			Scorer:       cfg.Media.Histogram,
			TargetFrames: cfg.Media.TargetFrames,
			Workers:      cfg.Media.Workers,
		}, logger),
	}

	// Social corroboration
	aggregator := social.NewAggregator([]social.Platform{
		twitter.New(cfg.Social.Twitter, logger),
		facebook.New(cfg.Social.Facebook, logger),
		instagram.New(cfg.Social.Instagram, logger),
	}, cfg.Social.Timeout, logger)

	trusted, err := trustedSources(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize trusted sources", zap.Error(err))
	}

	// Initialize service
	verifier := service.NewVerifier(analyzers, aggregator, repo, service.Options{
		Policy:          cfg.Scoring,
		FallbackKeyword: cfg.Social.FallbackKeyword,
		TrustedSources:  trusted,
	}, logger)

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(verifier, cfg.Server.UploadDir, cfg.Server.MaxUploadBytes, logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register routes
	apiHandler.RegisterRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", serverAddr))

	// Graceful shutdown
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	policy := verifier.Policy()
	logger.Info("Veracity Service is running",
		zap.String("port", cfg.Server.Port),
		zap.Any("classifier", textClassifier.GetModelInfo()),
		zap.Strings("platforms", aggregator.Platforms()),
		zap.Float64("primary_weight", policy.PrimaryWeight),
		zap.Float64("social_weight", policy.SocialWeight),
		zap.Float64("threshold", policy.Threshold))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(level, format string) (*zap.Logger, error) {
	if format == "json" {
		cfg := zap.NewProductionConfig()
		if level == "debug" {
			cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		return cfg.Build()
	}

	cfg := zap.NewDevelopmentConfig()
	if level != "debug" {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// trustedSources builds one extractor per source type
func trustedSources(cfg *config.Config, logger *zap.Logger) ([]service.TrustedSource, error) {
	extractors := make(map[string]scrape.Extractor)
	sources := make([]service.TrustedSource, 0, len(cfg.TrustedSources))

	for _, src := range cfg.TrustedSources {
		e, ok := extractors[src.Type]
		if !ok {
			var err error
			e, err = scrape.New(scrape.Config{
				Mode:      src.Type,
				Timeout:   cfg.Scraper.Timeout,
				UserAgent: cfg.Scraper.UserAgent,
			}, logger)
			if err != nil {
				return nil, fmt.Errorf("trusted source %s: %w", src.URL, err)
			}
			extractors[src.Type] = e
		}
		sources = append(sources, service.TrustedSource{URL: src.URL, Extractor: e})
	}
	return sources, nil
}
