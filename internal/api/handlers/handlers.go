package handlers

import (
	"encoding/json"
	"net/http"

	"listingguard/internal/domain/services"
	"listingguard/internal/infrastructure/cache"
	"listingguard/internal/infrastructure/database"
	"listingguard/internal/infrastructure/database/repository"
	"listingguard/pkg/logger"
)

// Handlers bundles all HTTP handlers
type Handlers struct {
	Health   *HealthHandler
	Classify *ClassifyHandler
}

// New creates all handlers
func New(classifier *services.Classifier, repos *repository.Repositories, db *database.PostgresDB, c *cache.RedisCache, log *logger.Logger) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(db, c, log),
		Classify: NewClassifyHandler(classifier, repos, log),
	}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
