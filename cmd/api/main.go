package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"listingguard/internal/api"
	"listingguard/internal/api/handlers"
	"listingguard/internal/config"
	"listingguard/internal/domain/services"
	"listingguard/internal/infrastructure/cache"
	"listingguard/internal/infrastructure/database"
	"listingguard/internal/infrastructure/database/repository"
	"listingguard/internal/oracle"
	"listingguard/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting ListingGuard")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize infrastructure
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()

	redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		redisCache = nil
	}
	defer func() {
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	repos := repository.New(db.Pool())

	// Build the scoring engine
	classifier := buildClassifier(cfg, repos, redisCache, log)

	// Initialize handlers and router
	h := handlers.New(classifier, repos, db, redisCache, log)
	router := api.NewRouter(*cfg, h, redisCache, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}

// buildClassifier wires the oracle clients, verifiers and stores
func buildClassifier(cfg *config.Config, repos *repository.Repositories, redisCache *cache.RedisCache, log *logger.Logger) *services.Classifier {
	nominatim := oracle.NewNominatimClient(cfg.Oracles.Nominatim, log)
	overpass := oracle.NewOverpassClient(cfg.Oracles.Overpass, log)
	vision := oracle.NewVisionClient(cfg.Oracles.Vision, log)
	serpapi := oracle.NewSerpAPIClient(cfg.Oracles.SerpAPI, log)
	contextMatch := oracle.NewContextMatchClient(cfg.Oracles.ContextMatch, log)
	embeddings := oracle.NewEmbeddingsClient(cfg.Oracles.Embeddings, log)
	predictor := oracle.NewPricePredictorClient(cfg.Oracles.PricePredictor, log)

	var comparables services.ComparablesProvider
	if cfg.Oracles.Idealista.Enabled {
		comparables = oracle.NewIdealistaClient(cfg.Oracles.Idealista, log)
	}

	var geocodeCache services.GeocodeCache
	if redisCache != nil {
		geocodeCache = redisCache
	}

	matcher := services.NewContextMatcher(cfg.Scoring, contextMatch, embeddings, log)
	geo := services.NewGeoVerifier(nominatim, overpass, matcher, geocodeCache, cfg.Scoring, log)
	image := services.NewImageVerifier(vision, serpapi, cfg.Scoring, log)
	price := services.NewPriceVerifier(predictor, comparables, repos.Locations, log)

	return services.NewClassifier(
		repos.Listings, repos.Locations, repos.Media, repos.Prices, repos.Frauds,
		geo, image, price, log,
	)
}
