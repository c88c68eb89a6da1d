package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cartrec/pkg/models"
)

// MockCatalog is a testify mock for CatalogReader
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCatalog) ListActivities(ctx context.Context) ([]models.ActivityRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivityRecord), args.Error(1)
}

func (m *MockCatalog) ListActivitiesForUsers(ctx context.Context, userIDs []string) ([]models.ActivityRecord, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivityRecord), args.Error(1)
}

func (m *MockCatalog) PopularProducts(ctx context.Context, limit int) ([]models.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func strPtr(s string) *string {
	return &s
}

func activity(userID string, product *models.Product, category *models.Category, views, carts, purchases int) models.ActivityRecord {
	record := models.ActivityRecord{
		Product:       product,
		Category:      category,
		ViewCount:     views,
		CartAddCount:  carts,
		PurchaseCount: purchases,
	}
	if userID != "" {
		record.UserID = strPtr(userID)
	}
	return record
}

func TestBuildUserFeatures(t *testing.T) {
	electronics := &models.Category{ID: "c1", Name: "Electronics"}
	books := &models.Category{ID: "c2", Name: "Books"}
	categories := []models.Category{*electronics, *books}

	cheap := &models.Product{ID: "p1", Price: 15}
	mid := &models.Product{ID: "p2", Price: 75}
	expensive := &models.Product{ID: "p3", Price: 200}

	t.Run("builds normalized blocks per user", func(t *testing.T) {
		activities := []models.ActivityRecord{
			activity("u1", cheap, electronics, 2, 1, 0),
			activity("u1", expensive, books, 0, 0, 1),
		}

		features := buildUserFeatures(categories, activities)
		require.Len(t, features.Vectors, 1)
		assert.Equal(t, []string{"u1"}, features.UserIDs)
		assert.Equal(t, 10, features.Dimensions())

		vector := features.Vectors[0]
		require.Len(t, vector, 10)

		// interest: c1 = 0.4+0.3 = 0.7, c2 = 0.5
		assert.InDelta(t, 0.7/1.2, vector[0], 1e-9)
		assert.InDelta(t, 0.5/1.2, vector[1], 1e-9)

		// price block is weighted like interest: below 20 = 0.7, 200 or more = 0.5
		assert.InDeltaSlice(t, []float64{0.7 / 1.2, 0, 0, 0, 0.5 / 1.2}, vector[2:7], 1e-9)

		// behaviors: views 2, carts 1, purchases 1
		assert.InDeltaSlice(t, []float64{0.5, 0.25, 0.25}, vector[7:10], 1e-9)
	})

	t.Run("price block is weighted by interest not record count", func(t *testing.T) {
		activities := []models.ActivityRecord{
			activity("u1", &models.Product{ID: "p4", Price: 15}, electronics, 10, 0, 0),
			activity("u1", &models.Product{ID: "p5", Price: 300}, electronics, 0, 0, 1),
		}

		features := buildUserFeatures(categories, activities)
		require.Len(t, features.Vectors, 1)

		// 10 views score 2.0, one purchase 0.5
		assert.InDeltaSlice(t, []float64{0.8, 0, 0, 0, 0.2}, features.Vectors[0][2:7], 1e-9)
	})

	t.Run("record without interactions adds no price preference", func(t *testing.T) {
		activities := []models.ActivityRecord{
			activity("u1", expensive, books, 0, 0, 0),
			activity("u1", cheap, electronics, 1, 0, 0),
			activity("u2", mid, books, 0, 0, 0),
		}

		features := buildUserFeatures(categories, activities)
		require.Len(t, features.Vectors, 2)
		assert.InDeltaSlice(t, []float64{1, 0, 0, 0, 0}, features.Vectors[0][2:7], 1e-9)
		assert.Equal(t, []float64{0, 0, 0, 0, 0}, features.Vectors[1][2:7])
	})

	t.Run("rows follow first appearance", func(t *testing.T) {
		activities := []models.ActivityRecord{
			activity("u2", mid, books, 1, 0, 0),
			activity("u1", cheap, electronics, 1, 0, 0),
			activity("u2", cheap, electronics, 1, 0, 0),
		}

		features := buildUserFeatures(categories, activities)
		assert.Equal(t, []string{"u2", "u1"}, features.UserIDs)
		assert.Len(t, features.Vectors, 2)
	})

	t.Run("unresolved user is skipped", func(t *testing.T) {
		orphan := activity("", cheap, electronics, 5, 0, 0)
		orphan.ID = 42
		activities := []models.ActivityRecord{
			orphan,
			activity("u1", cheap, electronics, 1, 0, 0),
		}

		features := buildUserFeatures(categories, activities)
		assert.Equal(t, []string{"u1"}, features.UserIDs)
		assert.Equal(t, []int64{42}, features.Skipped)
	})

	t.Run("unresolved product and category keep zero blocks", func(t *testing.T) {
		activities := []models.ActivityRecord{
			activity("u1", nil, nil, 3, 0, 0),
		}

		features := buildUserFeatures(categories, activities)
		require.Len(t, features.Vectors, 1)
		assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 1, 0, 0}, features.Vectors[0])
	})

	t.Run("category missing from snapshot contributes nothing", func(t *testing.T) {
		garden := &models.Category{ID: "c9", Name: "Garden"}
		activities := []models.ActivityRecord{
			activity("u1", mid, garden, 1, 0, 0),
		}

		features := buildUserFeatures(categories, activities)
		assert.Equal(t, []float64{0, 0}, features.Vectors[0][:2])
		assert.Equal(t, 1.0, features.Vectors[0][4])
	})

	t.Run("price bucket boundaries", func(t *testing.T) {
		cases := map[float64]int{0: 0, 19.99: 0, 20: 1, 49.99: 1, 50: 2, 100: 3, 199.99: 3, 200: 4, 5000: 4}
		for price, bucket := range cases {
			assert.Equal(t, bucket, priceBucket(price), "price %v", price)
		}
	})

	t.Run("no categories gives fixed tail only", func(t *testing.T) {
		features := buildUserFeatures(nil, []models.ActivityRecord{activity("u1", cheap, nil, 1, 0, 0)})
		require.Len(t, features.Vectors, 1)
		assert.Len(t, features.Vectors[0], 8)
	})
}

func TestFeatureBuilder_BuildFeatures(t *testing.T) {
	t.Run("loads snapshot from catalog", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("ListCategories", mock.Anything).Return([]models.Category{{ID: "c1", Name: "Home"}}, nil)
		catalog.On("ListActivities", mock.Anything).Return([]models.ActivityRecord{
			activity("u1", &models.Product{ID: "p1", Price: 30}, &models.Category{ID: "c1"}, 1, 0, 0),
		}, nil)

		features, err := NewFeatureBuilder(catalog, testLogger()).BuildFeatures(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, features.UserIDs)
		assert.Len(t, features.Vectors[0], 9)

		catalog.AssertExpectations(t)
	})

	t.Run("logs every skipped activity", func(t *testing.T) {
		orphanA := activity("", &models.Product{ID: "p1", Price: 30}, nil, 1, 0, 0)
		orphanA.ID = 7
		orphanB := activity("", &models.Product{ID: "p1", Price: 30}, nil, 0, 1, 0)
		orphanB.ID = 9

		catalog := new(MockCatalog)
		catalog.On("ListCategories", mock.Anything).Return([]models.Category{}, nil)
		catalog.On("ListActivities", mock.Anything).Return([]models.ActivityRecord{
			orphanA,
			activity("u1", &models.Product{ID: "p1", Price: 30}, nil, 1, 0, 0),
			orphanB,
		}, nil)

		logger, hook := logtest.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)

		features, err := NewFeatureBuilder(catalog, logger).BuildFeatures(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 9}, features.Skipped)

		var logged []interface{}
		for _, entry := range hook.AllEntries() {
			if id, ok := entry.Data["activity_id"]; ok {
				logged = append(logged, id)
			}
		}
		assert.Equal(t, []interface{}{int64(7), int64(9)}, logged)
	})

	t.Run("catalog failure is reported as data unavailable", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("ListCategories", mock.Anything).Return(nil, errors.New("timeout"))
		catalog.On("ListActivities", mock.Anything).Return([]models.ActivityRecord{}, nil).Maybe()

		_, err := NewFeatureBuilder(catalog, testLogger()).BuildFeatures(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDataUnavailable)
	})
}
