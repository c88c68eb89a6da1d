package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cartrec/internal/config"
	"github.com/temcen/cartrec/internal/database"
	"github.com/temcen/cartrec/internal/messaging"
)

type Services struct {
	Auth                       *AuthService
	Health                     *HealthService
	RateLimit                  *RateLimitService
	Catalog                    *CatalogService
	FeatureBuilder             *FeatureBuilder
	RecommendationOrchestrator *RecommendationOrchestrator
	ActivityTracker            *ActivityTracker
	Metrics                    *RecommendationMetrics

	// Publisher is nil when kafka is disabled
	Publisher *messaging.ActivityPublisher
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	authService := NewAuthService(cfg, logger, db.Redis)
	healthService := NewHealthService(logger, db)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis)

	metrics := NewRecommendationMetrics(prometheus.DefaultRegisterer, logger)

	catalog := NewCatalogService(db.PG, logger)
	featureBuilder := NewFeatureBuilder(catalog, logger)
	orchestrator := NewRecommendationOrchestrator(featureBuilder, catalog, &cfg.Recommendation, metrics, logger)

	publisher, err := messaging.NewActivityPublisher(cfg, logger)
	var eventPublisher EventPublisher
	switch {
	case errors.Is(err, messaging.ErrDisabled):
		logger.Info("Kafka disabled, activity events will not be published")
	case err != nil:
		return nil, err
	default:
		eventPublisher = publisher
	}

	activityTracker := NewActivityTracker(db.PG, catalog, eventPublisher, metrics, logger)

	return &Services{
		Auth:                       authService,
		Health:                     healthService,
		RateLimit:                  rateLimitService,
		Catalog:                    catalog,
		FeatureBuilder:             featureBuilder,
		RecommendationOrchestrator: orchestrator,
		ActivityTracker:            activityTracker,
		Metrics:                    metrics,
		Publisher:                  publisher,
	}, nil
}

// Close releases resources owned by the services
func (s *Services) Close() error {
	if s.Publisher != nil {
		return s.Publisher.Close()
	}
	return nil
}
