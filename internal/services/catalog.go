package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/temcen/cartrec/pkg/models"
)

// activitySelect resolves every reference of an activity row. Missing
// references come back as zero values with a false *_found flag.
const activitySelect = `
	SELECT
		a.id,
		u.id IS NOT NULL AS user_found,
		COALESCE(u.id, '') AS user_id,
		p.id IS NOT NULL AS product_found,
		COALESCE(p.id, '') AS product_id,
		COALESCE(p.name, '') AS product_name,
		COALESCE(p.price, 0) AS price,
		COALESCE(p.rating, 0) AS rating,
		COALESCE(p.num_reviews, 0) AS num_reviews,
		COALESCE(p.category_id, '') AS product_category_id,
		COALESCE(p.image_url, '') AS image_url,
		c.id IS NOT NULL AS category_found,
		COALESCE(c.id, '') AS category_id,
		COALESCE(c.name, '') AS category_name,
		a.view_count,
		a.view_time,
		a.cart_add_count,
		a.purchase_count,
		a.last_interaction
	FROM user_activities a
	LEFT JOIN users u ON u.id = a.user_id
	LEFT JOIN products p ON p.id = a.product_id
	LEFT JOIN categories c ON c.id = a.category_id`

// CatalogService reads categories, products and activity history from PostgreSQL
type CatalogService struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewCatalogService(db DatabaseQuerier, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		db:     db,
		logger: logger,
	}
}

// ListCategories returns all categories in creation order
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	query := `SELECT id, name FROM categories ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		category.Name = norm.NFC.String(category.Name)
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}

	return categories, nil
}

// ListActivities returns every activity record in insertion order
func (s *CatalogService) ListActivities(ctx context.Context) ([]models.ActivityRecord, error) {
	rows, err := s.db.Query(ctx, activitySelect+` ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}

	return s.scanActivities(rows)
}

// ListActivitiesForUsers returns the activity records owned by the given users
func (s *CatalogService) ListActivitiesForUsers(ctx context.Context, userIDs []string) ([]models.ActivityRecord, error) {
	if len(userIDs) == 0 {
		return []models.ActivityRecord{}, nil
	}

	rows, err := s.db.Query(ctx, activitySelect+` WHERE a.user_id = ANY($1) ORDER BY a.id`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities for users: %w", err)
	}

	return s.scanActivities(rows)
}

// PopularProducts returns the most reviewed products, best rated first among equals
func (s *CatalogService) PopularProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		return []models.Product{}, nil
	}

	query := `
		SELECT
			p.id,
			p.name,
			p.price,
			p.rating,
			p.num_reviews,
			COALESCE(p.category_id, '') AS category_id,
			COALESCE(p.image_url, '') AS image_url,
			c.id IS NOT NULL AS category_found,
			COALESCE(c.name, '') AS category_name
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY p.num_reviews DESC, p.rating DESC, p.id ASC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0, limit)
	for rows.Next() {
		var (
			product       models.Product
			imageURL      string
			categoryFound bool
			categoryName  string
		)

		err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &product.Rating, &product.NumReviews,
			&product.CategoryID, &imageURL, &categoryFound, &categoryName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan popular product: %w", err)
		}

		product.Name = norm.NFC.String(product.Name)
		if imageURL != "" {
			product.ImageURL = &imageURL
		}
		if categoryFound {
			product.Category = &models.Category{ID: product.CategoryID, Name: norm.NFC.String(categoryName)}
		}

		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read popular products: %w", err)
	}

	return products, nil
}

// FindProduct loads a single product, returning ErrProductNotFound when absent
func (s *CatalogService) FindProduct(ctx context.Context, productID string) (*models.Product, error) {
	query := `
		SELECT id, name, price, rating, num_reviews, COALESCE(category_id, '')
		FROM products
		WHERE id = $1`

	var product models.Product
	err := s.db.QueryRow(ctx, query, productID).Scan(
		&product.ID, &product.Name, &product.Price, &product.Rating, &product.NumReviews, &product.CategoryID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}

	product.Name = norm.NFC.String(product.Name)
	return &product, nil
}

func (s *CatalogService) scanActivities(rows pgx.Rows) ([]models.ActivityRecord, error) {
	defer rows.Close()

	activities := make([]models.ActivityRecord, 0)
	for rows.Next() {
		var (
			record                   models.ActivityRecord
			userFound, productFound  bool
			categoryFound            bool
			userID                   string
			product                  models.Product
			imageURL                 string
			categoryID, categoryName string
		)

		err := rows.Scan(
			&record.ID,
			&userFound, &userID,
			&productFound, &product.ID, &product.Name, &product.Price, &product.Rating,
			&product.NumReviews, &product.CategoryID, &imageURL,
			&categoryFound, &categoryID, &categoryName,
			&record.ViewCount, &record.ViewTime, &record.CartAddCount, &record.PurchaseCount,
			&record.LastInteraction,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		if userFound {
			record.UserID = &userID
		}
		if categoryFound {
			record.Category = &models.Category{ID: categoryID, Name: norm.NFC.String(categoryName)}
		}
		if productFound {
			product.Name = norm.NFC.String(product.Name)
			if imageURL != "" {
				product.ImageURL = &imageURL
			}
			if record.Category != nil && record.Category.ID == product.CategoryID {
				product.Category = record.Category
			}
			record.Product = &product
		}

		activities = append(activities, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activities: %w", err)
	}

	s.logger.WithField("count", len(activities)).Debug("Loaded activity records")
	return activities, nil
}
