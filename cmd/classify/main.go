package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"listingguard/internal/config"
	"listingguard/internal/domain/services"
	"listingguard/internal/infrastructure/cache"
	"listingguard/internal/infrastructure/database"
	"listingguard/internal/infrastructure/database/repository"
	"listingguard/internal/oracle"
	"listingguard/pkg/logger"
)

// One-shot classification of a single listing, for crawl pipelines and
// debugging. Prints the aggregate as JSON on stdout.
func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		listingID  = flag.String("listing", "", "listing id to classify")
		timeout    = flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	)
	flag.Parse()

	if *listingID == "" {
		fmt.Fprintln(os.Stderr, "usage: classify -listing <id> [-config <path>]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDevelopment()
	logger.SetGlobal(log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

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
	classifier := buildClassifier(cfg, repos, redisCache, log)

	result, err := classifier.Classify(ctx, *listingID)
	if err != nil {
		log.Fatal().Err(err).Str("listing_id", *listingID).Msg("classification failed")
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode result")
	}
	fmt.Println(string(out))
}

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
