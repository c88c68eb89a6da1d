package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cartrec/internal/config"
	"github.com/temcen/cartrec/internal/middleware"
	"github.com/temcen/cartrec/internal/services"
	"github.com/temcen/cartrec/pkg/models"
)

const anonymousRecommendationMessage = "Authentication required for personalized recommendations"

type RecommendationHandler struct {
	recommender services.RecommenderInterface
	config      *config.RecommendationConfig
	logger      *logrus.Logger
}

func NewRecommendationHandler(
	recommender services.RecommenderInterface,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		config:      cfg,
		logger:      logger,
	}
}

// ForMe handles GET /api/v1/recommendations/for-me
func (h *RecommendationHandler) ForMe(c *gin.Context) {
	userID, _, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusOK, models.AnonymousRecommendationResponse{
			Success:  true,
			Message:  anonymousRecommendationMessage,
			Products: []models.Product{},
		})
		return
	}

	limit := h.parseLimit(c.Query("limit"))
	result := h.recommender.Recommend(c.Request.Context(), userID, limit)

	h.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"limit":    limit,
		"count":    len(result.Products),
		"strategy": result.Strategy,
		"latency":  result.Latency,
	}).Debug("Served recommendations")

	c.JSON(http.StatusOK, models.RecommendationResponse{
		Success:     true,
		Count:       len(result.Products),
		Products:    result.Products,
		Strategy:    result.Strategy,
		GeneratedAt: result.GeneratedAt,
	})
}

// parseLimit falls back to the default for missing or invalid values and caps at the max
func (h *RecommendationHandler) parseLimit(raw string) int {
	limit := h.config.DefaultLimit
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if h.config.MaxLimit > 0 && limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}
	return limit
}
