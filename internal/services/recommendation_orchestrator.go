package services

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/cartrec/internal/config"
	"github.com/temcen/cartrec/internal/ml"
	"github.com/temcen/cartrec/pkg/models"
)

// Serving strategies
const (
	StrategyCluster            = "cluster"
	StrategyClusterWithPopular = "cluster_with_popular"
	StrategyPopular            = "popular"
)

// Reasons for serving global popularity instead of cluster recommendations
const (
	ReasonInsufficientUsers = "insufficient_users"
	ReasonUnknownUser       = "unknown_user"
	ReasonNoCluster         = "no_cluster"
	ReasonNoClusterMates    = "no_cluster_mates"
	ReasonError             = "error"
)

// Cluster popularity weights per activity kind
const (
	viewScoreWeight     = 1
	cartAddScoreWeight  = 3
	purchaseScoreWeight = 5
)

const defaultClusterCount = 3

// RecommendationResult represents the outcome of a single recommendation request
type RecommendationResult struct {
	UserID         string           `json:"user_id"`
	Products       []models.Product `json:"products"`
	Strategy       string           `json:"strategy"`
	FallbackReason string           `json:"fallback_reason,omitempty"`
	ClusterSize    int              `json:"cluster_size,omitempty"`
	Iterations     int              `json:"iterations,omitempty"`
	Latency        time.Duration    `json:"latency"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

type productScore struct {
	product models.Product
	score   float64
}

// RecommendationOrchestrator clusters shoppers by behavior and recommends
// what their cluster-mates engaged with most
type RecommendationOrchestrator struct {
	features FeatureSource
	catalog  CatalogReader
	config   *config.RecommendationConfig
	metrics  *RecommendationMetrics
	logger   *logrus.Logger

	// newRand seeds k-means per request; nil means time seeded
	newRand func() *rand.Rand
}

func NewRecommendationOrchestrator(
	features FeatureSource,
	catalog CatalogReader,
	cfg *config.RecommendationConfig,
	metrics *RecommendationMetrics,
	logger *logrus.Logger,
) *RecommendationOrchestrator {
	return &RecommendationOrchestrator{
		features: features,
		catalog:  catalog,
		config:   cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// SetRandSource replaces the per-request random source used to seed clustering
func (o *RecommendationOrchestrator) SetRandSource(newRand func() *rand.Rand) {
	o.newRand = newRand
}

// Recommend returns up to limit products for the user. It never fails:
// any problem on the personalized path degrades to global popularity.
func (o *RecommendationOrchestrator) Recommend(ctx context.Context, userID string, limit int) *RecommendationResult {
	start := time.Now()
	result := &RecommendationResult{
		UserID:   userID,
		Products: []models.Product{},
		Strategy: StrategyPopular,
	}

	defer func() {
		result.Latency = time.Since(start)
		result.GeneratedAt = time.Now()
		o.metrics.ObserveRecommendation(result)
	}()

	if limit <= 0 {
		return result
	}

	products, err := o.clusterRecommendations(ctx, result, limit)
	if err != nil {
		o.logger.WithError(err).WithField("user_id", userID).Warn("Cluster recommendations failed")
		result.FallbackReason = ReasonError
	}

	if result.FallbackReason != "" {
		o.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"reason":  result.FallbackReason,
		}).Info("Applying popularity fallback")

		result.Products = o.popularProducts(ctx, limit)
		result.Strategy = StrategyPopular
		return result
	}

	result.Strategy = StrategyCluster
	if len(products) < limit {
		topped := o.topUp(ctx, products, limit)
		if len(topped) > len(products) {
			result.Strategy = StrategyClusterWithPopular
		}
		products = topped
	}
	result.Products = products

	o.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"strategy":     result.Strategy,
		"count":        len(result.Products),
		"cluster_size": result.ClusterSize,
	}).Info("Recommendations generated")

	return result
}

// clusterRecommendations runs the personalized path. A fallback that is not
// an error is reported through result.FallbackReason with a nil error.
func (o *RecommendationOrchestrator) clusterRecommendations(
	ctx context.Context,
	result *RecommendationResult,
	limit int,
) ([]models.Product, error) {
	features, err := o.features.BuildFeatures(ctx)
	if err != nil {
		return nil, err
	}

	if len(features.UserIDs) < 2 {
		result.FallbackReason = ReasonInsufficientUsers
		return nil, nil
	}

	userIndex := slices.Index(features.UserIDs, result.UserID)
	if userIndex == -1 {
		result.FallbackReason = ReasonUnknownUser
		return nil, nil
	}

	k := o.config.Clusters
	if k <= 0 {
		k = defaultClusterCount
	}
	k = min(k, len(features.UserIDs))

	km := ml.NewKMeans(k, o.clusterRand())
	km.MaxIterations = o.config.MaxIterations
	km.Threshold = o.config.ConvergenceThreshold

	clustering, err := km.Cluster(features.Vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to cluster users: %w", err)
	}

	result.Iterations = clustering.Iterations
	o.metrics.ObserveIterations(clustering.Iterations)
	o.logger.WithFields(logrus.Fields{
		"users":      len(features.UserIDs),
		"k":          k,
		"iterations": clustering.Iterations,
		"converged":  clustering.Converged,
	}).Debug("Clustered users")

	cluster := clusterMembers(clustering.Clusters, userIndex)
	if cluster == nil {
		result.FallbackReason = ReasonNoCluster
		return nil, nil
	}

	mates := make([]string, 0, len(cluster)-1)
	for _, idx := range cluster {
		if idx != userIndex {
			mates = append(mates, features.UserIDs[idx])
		}
	}
	if len(mates) == 0 {
		result.FallbackReason = ReasonNoClusterMates
		return nil, nil
	}
	result.ClusterSize = len(cluster)

	return o.clusterPopularProducts(ctx, mates, limit)
}

// clusterMembers returns the cluster holding index, or nil when no cluster does
func clusterMembers(clusters [][]int, index int) []int {
	for _, members := range clusters {
		if slices.Contains(members, index) {
			return members
		}
	}
	return nil
}

// clusterPopularProducts ranks the products the given users engaged with
func (o *RecommendationOrchestrator) clusterPopularProducts(ctx context.Context, userIDs []string, limit int) ([]models.Product, error) {
	activities, err := o.catalog.ListActivitiesForUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	scores := make(map[string]*productScore)
	ranked := make([]*productScore, 0)
	for _, activity := range activities {
		if activity.Product == nil {
			continue
		}

		entry, ok := scores[activity.Product.ID]
		if !ok {
			entry = &productScore{product: *activity.Product}
			scores[activity.Product.ID] = entry
			ranked = append(ranked, entry)
		}

		entry.score += float64(activity.ViewCount)*viewScoreWeight +
			float64(activity.CartAddCount)*cartAddScoreWeight +
			float64(activity.PurchaseCount)*purchaseScoreWeight
	}

	// Ties keep first-seen order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	products := make([]models.Product, 0, min(limit, len(ranked)))
	for _, entry := range ranked {
		if len(products) == limit {
			break
		}
		products = append(products, entry.product)
	}

	return products, nil
}

// topUp fills products up to limit with globally popular ones it does not already contain
func (o *RecommendationOrchestrator) topUp(ctx context.Context, products []models.Product, limit int) []models.Product {
	popular, err := o.catalog.PopularProducts(ctx, limit)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to load popular products for top-up")
		return products
	}

	selected := make(map[string]struct{}, len(products))
	for _, product := range products {
		selected[product.ID] = struct{}{}
	}

	for _, product := range popular {
		if len(products) >= limit {
			break
		}
		if _, ok := selected[product.ID]; ok {
			continue
		}
		selected[product.ID] = struct{}{}
		products = append(products, product)
	}

	return products
}

func (o *RecommendationOrchestrator) popularProducts(ctx context.Context, limit int) []models.Product {
	products, err := o.catalog.PopularProducts(ctx, limit)
	if err != nil {
		o.logger.WithError(err).Error("Failed to load popular products")
		return []models.Product{}
	}
	return products
}

func (o *RecommendationOrchestrator) clusterRand() *rand.Rand {
	if o.newRand == nil {
		return nil
	}
	return o.newRand()
}
