package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cartrec/pkg/models"
)

// Upserts keyed by (user_id, product_id). The category is captured on first insert only.
const (
	upsertViewSQL = `
		INSERT INTO user_activities (user_id, product_id, category_id, view_count, view_time, last_interaction)
		VALUES ($1, $2, NULLIF($3, ''), 1, $4, now())
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			view_count = user_activities.view_count + 1,
			view_time = user_activities.view_time + EXCLUDED.view_time,
			last_interaction = now()`

	upsertCartAddSQL = `
		INSERT INTO user_activities (user_id, product_id, category_id, cart_add_count, last_interaction)
		VALUES ($1, $2, NULLIF($3, ''), 1, now())
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			cart_add_count = user_activities.cart_add_count + 1,
			last_interaction = now()`

	upsertPurchaseSQL = `
		INSERT INTO user_activities (user_id, product_id, category_id, purchase_count, last_interaction)
		VALUES ($1, $2, NULLIF($3, ''), 1, now())
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			purchase_count = user_activities.purchase_count + 1,
			last_interaction = now()`
)

// ActivityTracker records views, cart additions and purchases
type ActivityTracker struct {
	db        DatabaseQuerier
	products  ProductFinder
	publisher EventPublisher
	metrics   *RecommendationMetrics
	logger    *logrus.Logger
}

// NewActivityTracker creates a tracker. publisher may be nil when messaging is disabled.
func NewActivityTracker(
	db DatabaseQuerier,
	products ProductFinder,
	publisher EventPublisher,
	metrics *RecommendationMetrics,
	logger *logrus.Logger,
) *ActivityTracker {
	return &ActivityTracker{
		db:        db,
		products:  products,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

func (t *ActivityTracker) RecordView(ctx context.Context, userID, productID string, viewTime int) (*models.ActivityEvent, error) {
	if viewTime < 0 {
		viewTime = 0
	}
	return t.record(ctx, models.ActivityView, userID, productID, viewTime)
}

func (t *ActivityTracker) RecordCartAdd(ctx context.Context, userID, productID string) (*models.ActivityEvent, error) {
	return t.record(ctx, models.ActivityCartAdd, userID, productID, 0)
}

func (t *ActivityTracker) RecordPurchase(ctx context.Context, userID, productID string) (*models.ActivityEvent, error) {
	return t.record(ctx, models.ActivityPurchase, userID, productID, 0)
}

func (t *ActivityTracker) record(ctx context.Context, activityType, userID, productID string, viewTime int) (*models.ActivityEvent, error) {
	product, err := t.products.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var (
		query string
		args  = []interface{}{userID, productID, product.CategoryID}
	)
	switch activityType {
	case models.ActivityView:
		query = upsertViewSQL
		args = append(args, viewTime)
	case models.ActivityCartAdd:
		query = upsertCartAddSQL
	case models.ActivityPurchase:
		query = upsertPurchaseSQL
	default:
		return nil, fmt.Errorf("unknown activity type %q", activityType)
	}

	if _, err := t.db.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to record %s activity: %w", activityType, err)
	}

	event := &models.ActivityEvent{
		EventID:    uuid.New(),
		Type:       activityType,
		UserID:     userID,
		ProductID:  productID,
		CategoryID: product.CategoryID,
		ViewTime:   viewTime,
		Timestamp:  time.Now(),
	}

	t.metrics.ObserveActivity(activityType)
	t.logger.WithFields(logrus.Fields{
		"type":       activityType,
		"user_id":    userID,
		"product_id": productID,
	}).Debug("Activity recorded")

	if t.publisher != nil {
		if err := t.publisher.PublishActivity(ctx, event); err != nil {
			t.logger.WithError(err).WithField("event_id", event.EventID).Warn("Failed to publish activity event")
		}
	}

	return event, nil
}
