package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cartrec/internal/config"
	"github.com/temcen/cartrec/internal/middleware"
	"github.com/temcen/cartrec/internal/services"
	"github.com/temcen/cartrec/internal/validation"
	"github.com/temcen/cartrec/pkg/models"
)

// MockRecommender is a mock implementation of services.RecommenderInterface
type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) Recommend(ctx context.Context, userID string, limit int) *services.RecommendationResult {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).(*services.RecommendationResult)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

// withUser simulates the auth middleware
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.ContextUserID, userID)
			c.Set(middleware.ContextUserTier, "free")
		}
		c.Next()
	}
}

func TestRecommendationHandler_ForMe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.RecommendationConfig{DefaultLimit: 10, MaxLimit: 50}
	schemas, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	result := &services.RecommendationResult{
		UserID: "u1",
		Products: []models.Product{
			{ID: "p2", Name: "Mug", Price: 12, NumReviews: 3},
			{ID: "p3", Name: "Candle", Price: 8},
		},
		Strategy:    services.StrategyCluster,
		GeneratedAt: time.Now(),
	}

	tests := []struct {
		name          string
		userID        string
		query         string
		expectedLimit int
	}{
		{name: "default limit", userID: "u1", query: "", expectedLimit: 10},
		{name: "explicit limit", userID: "u1", query: "?limit=5", expectedLimit: 5},
		{name: "invalid limit falls back", userID: "u1", query: "?limit=abc", expectedLimit: 10},
		{name: "negative limit falls back", userID: "u1", query: "?limit=-3", expectedLimit: 10},
		{name: "limit is capped", userID: "u1", query: "?limit=500", expectedLimit: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recommender := new(MockRecommender)
			recommender.On("Recommend", mock.Anything, tt.userID, tt.expectedLimit).Return(result).Once()

			router := gin.New()
			router.GET("/for-me", withUser(tt.userID), NewRecommendationHandler(recommender, cfg, testLogger()).ForMe)

			req := httptest.NewRequest(http.MethodGet, "/for-me"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, schemas.ValidateJSON(validation.RecommendationResponseSchema, w.Body.Bytes()).Valid)

			var response models.RecommendationResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.True(t, response.Success)
			assert.Equal(t, 2, response.Count)
			assert.Equal(t, "p2", response.Products[0].ID)
			assert.Equal(t, services.StrategyCluster, response.Strategy)

			recommender.AssertExpectations(t)
		})
	}

	t.Run("anonymous request gets an empty list", func(t *testing.T) {
		recommender := new(MockRecommender)

		router := gin.New()
		router.GET("/for-me", withUser(""), NewRecommendationHandler(recommender, cfg, testLogger()).ForMe)

		req := httptest.NewRequest(http.MethodGet, "/for-me", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t,
			`{"success":true,"message":"Authentication required for personalized recommendations","products":[]}`,
			w.Body.String())
		recommender.AssertNotCalled(t, "Recommend", mock.Anything, mock.Anything, mock.Anything)
	})
}
