package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/cartrec/internal/ml"
	"github.com/temcen/cartrec/pkg/models"
)

// Upper bounds of the price buckets; the last bucket is open ended
var priceBucketBounds = [...]float64{20, 50, 100, 200}

const (
	priceBucketCount = len(priceBucketBounds) + 1
	behaviorCount    = 3

	// Fixed tail of every feature vector: price buckets plus behavior totals
	fixedFeatureCount = priceBucketCount + behaviorCount
)

// Interest weights per activity kind, shared by the category and price blocks
const (
	viewInterestWeight     = 0.2
	cartAddInterestWeight  = 0.3
	purchaseInterestWeight = 0.5
)

// UserFeatures is the feature matrix of every user with resolvable activity.
// Vectors[i] belongs to UserIDs[i]; rows follow first appearance in the history.
type UserFeatures struct {
	Vectors    [][]float64
	UserIDs    []string
	Categories []models.Category

	// Skipped holds the ids of activity records whose user no longer exists
	Skipped []int64
}

// Dimensions returns the length of each feature vector
func (f *UserFeatures) Dimensions() int {
	return len(f.Categories) + fixedFeatureCount
}

type userAccumulator struct {
	categoryInterests []float64
	priceRanges       [priceBucketCount]float64
	behaviors         [behaviorCount]float64
}

// FeatureBuilder turns the activity history into per-user feature vectors
type FeatureBuilder struct {
	catalog CatalogReader
	logger  *logrus.Logger
}

func NewFeatureBuilder(catalog CatalogReader, logger *logrus.Logger) *FeatureBuilder {
	return &FeatureBuilder{
		catalog: catalog,
		logger:  logger,
	}
}

// BuildFeatures snapshots categories and activities and builds one vector per user
func (b *FeatureBuilder) BuildFeatures(ctx context.Context) (*UserFeatures, error) {
	var (
		categories []models.Category
		activities []models.ActivityRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = b.catalog.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		activities, err = b.catalog.ListActivities(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	features := buildUserFeatures(categories, activities)

	for _, activityID := range features.Skipped {
		b.logger.WithField("activity_id", activityID).Debug("Skipping activity with unresolved user")
	}

	b.logger.WithFields(logrus.Fields{
		"users":      len(features.UserIDs),
		"categories": len(categories),
		"activities": len(activities),
		"skipped":    len(features.Skipped),
	}).Debug("Prepared user features")

	return features, nil
}

func buildUserFeatures(categories []models.Category, activities []models.ActivityRecord) *UserFeatures {
	categoryIndex := make(map[string]int, len(categories))
	for i, category := range categories {
		categoryIndex[category.ID] = i
	}

	accumulators := make(map[string]*userAccumulator)
	order := make([]string, 0)
	skipped := make([]int64, 0)

	for _, activity := range activities {
		if activity.UserID == nil {
			skipped = append(skipped, activity.ID)
			continue
		}

		userID := *activity.UserID
		acc, ok := accumulators[userID]
		if !ok {
			acc = &userAccumulator{categoryInterests: make([]float64, len(categories))}
			accumulators[userID] = acc
			order = append(order, userID)
		}

		score := interestScore(activity)

		if activity.Category != nil {
			if idx, ok := categoryIndex[activity.Category.ID]; ok {
				acc.categoryInterests[idx] += score
			}
		}

		// Price preference carries the same weighting as category interest
		if activity.Product != nil {
			acc.priceRanges[priceBucket(activity.Product.Price)] += score
		}

		acc.behaviors[0] += float64(activity.ViewCount)
		acc.behaviors[1] += float64(activity.CartAddCount)
		acc.behaviors[2] += float64(activity.PurchaseCount)
	}

	vectors := make([][]float64, 0, len(order))
	for _, userID := range order {
		acc := accumulators[userID]

		vector := make([]float64, 0, len(categories)+fixedFeatureCount)
		vector = append(vector, ml.Normalize(acc.categoryInterests)...)
		vector = append(vector, ml.Normalize(acc.priceRanges[:])...)
		vector = append(vector, ml.Normalize(acc.behaviors[:])...)

		vectors = append(vectors, vector)
	}

	return &UserFeatures{
		Vectors:    vectors,
		UserIDs:    order,
		Categories: categories,
		Skipped:    skipped,
	}
}

func interestScore(activity models.ActivityRecord) float64 {
	return float64(activity.ViewCount)*viewInterestWeight +
		float64(activity.CartAddCount)*cartAddInterestWeight +
		float64(activity.PurchaseCount)*purchaseInterestWeight
}

func priceBucket(price float64) int {
	for i, bound := range priceBucketBounds {
		if price < bound {
			return i
		}
	}
	return len(priceBucketBounds)
}
