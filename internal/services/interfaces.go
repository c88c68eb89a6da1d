package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/temcen/cartrec/pkg/models"
)

// DatabaseQuerier interface for database operations
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// CatalogReader defines the read side of the catalog used by the recommender
type CatalogReader interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListActivities(ctx context.Context) ([]models.ActivityRecord, error)
	ListActivitiesForUsers(ctx context.Context, userIDs []string) ([]models.ActivityRecord, error)
	PopularProducts(ctx context.Context, limit int) ([]models.Product, error)
}

// ProductFinder resolves a single product by id
type ProductFinder interface {
	FindProduct(ctx context.Context, productID string) (*models.Product, error)
}

// FeatureSource produces the per-user feature matrix
type FeatureSource interface {
	BuildFeatures(ctx context.Context) (*UserFeatures, error)
}

// RecommenderInterface defines the interface for personalized recommendations
type RecommenderInterface interface {
	Recommend(ctx context.Context, userID string, limit int) *RecommendationResult
}

// ActivityTrackerInterface defines the interface for recording shopper activity
type ActivityTrackerInterface interface {
	RecordView(ctx context.Context, userID, productID string, viewTime int) (*models.ActivityEvent, error)
	RecordCartAdd(ctx context.Context, userID, productID string) (*models.ActivityEvent, error)
	RecordPurchase(ctx context.Context, userID, productID string) (*models.ActivityEvent, error)
}

// EventPublisher delivers activity events to downstream consumers
type EventPublisher interface {
	PublishActivity(ctx context.Context, event *models.ActivityEvent) error
}
