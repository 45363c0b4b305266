package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"listingguard/internal/domain/services"
	"listingguard/internal/infrastructure/database/repository"
	"listingguard/pkg/logger"
)

// ClassifyHandler exposes the scoring engine over HTTP
type ClassifyHandler struct {
	classifier *services.Classifier
	repos      *repository.Repositories
	logger     *logger.Logger
}

// NewClassifyHandler creates a new ClassifyHandler
func NewClassifyHandler(classifier *services.Classifier, repos *repository.Repositories, log *logger.Logger) *ClassifyHandler {
	return &ClassifyHandler{
		classifier: classifier,
		repos:      repos,
		logger:     log.WithComponent("classify"),
	}
}

// Run handles POST /api/v1/classify/{id} - scores a listing end to end
func (h *ClassifyHandler) Run(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		respondError(w, http.StatusBadRequest, "listing id is required")
		return
	}

	result, err := h.classifier.Classify(r.Context(), listingID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrListingNotFound):
			respondError(w, http.StatusNotFound, "listing not found")
		case errors.Is(err, services.ErrLocationUnavailable):
			respondError(w, http.StatusUnprocessableEntity, "claimed address could not be resolved")
		default:
			h.logger.Error().Err(err).Str("listing_id", listingID).Msg("Classification failed")
			respondError(w, http.StatusBadGateway, "classification failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get handles GET /api/v1/classify/{id} - returns the stored aggregate
func (h *ClassifyHandler) Get(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")

	result, err := h.classifier.Result(r.Context(), listingID)
	if err != nil {
		h.logger.Error().Err(err).Str("listing_id", listingID).Msg("Failed to load fraud result")
		respondError(w, http.StatusInternalServerError, "failed to load result")
		return
	}
	if result == nil {
		respondError(w, http.StatusNotFound, "listing has not been classified")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// List handles GET /api/v1/classify - returns recently classified listings
func (h *ClassifyHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	results, err := h.repos.Frauds.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list fraud results")
		respondError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"limit":   limit,
		"offset":  offset,
	})
}

// Details handles GET /api/v1/classify/{id}/details - returns the per-signal rows
func (h *ClassifyHandler) Details(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")

	fraud, err := h.repos.Frauds.Get(r.Context(), listingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load result")
		return
	}
	if fraud == nil {
		respondError(w, http.StatusNotFound, "listing has not been classified")
		return
	}

	location, err := h.repos.Locations.GetByListing(r.Context(), listingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load location result")
		return
	}
	media, err := h.repos.Media.GetByListing(r.Context(), listingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load media record")
		return
	}
	price, err := h.repos.Prices.GetByListing(r.Context(), listingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load price result")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"fraud":    fraud,
		"location": location,
		"media":    media,
		"price":    price,
	})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
