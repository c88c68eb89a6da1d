package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cartrec/internal/middleware"
	"github.com/temcen/cartrec/internal/services"
	"github.com/temcen/cartrec/pkg/models"
)

type ActivityHandler struct {
	tracker   services.ActivityTrackerInterface
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewActivityHandler(tracker services.ActivityTrackerInterface, logger *logrus.Logger) *ActivityHandler {
	return &ActivityHandler{
		tracker:   tracker,
		validator: validator.New(),
		logger:    logger,
	}
}

// RecordView handles POST /api/v1/user-activity/view
func (h *ActivityHandler) RecordView(c *gin.Context) {
	h.record(c, models.ActivityView)
}

// RecordCartAdd handles POST /api/v1/user-activity/cart-add
func (h *ActivityHandler) RecordCartAdd(c *gin.Context) {
	h.record(c, models.ActivityCartAdd)
}

// RecordPurchase handles POST /api/v1/user-activity/purchase
func (h *ActivityHandler) RecordPurchase(c *gin.Context) {
	h.record(c, models.ActivityPurchase)
}

func (h *ActivityHandler) record(c *gin.Context, activityType string) {
	var req models.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Invalid activity request body")
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be a valid activity")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Request validation failed",
				"details": validationDetails(err),
			},
		})
		return
	}

	userID, _, _ := middleware.GetUserFromContext(c)
	if req.UserID != userID {
		respondError(c, http.StatusForbidden, "USER_MISMATCH", "Activity can only be recorded for the authenticated user")
		return
	}

	ctx := c.Request.Context()
	var err error
	switch activityType {
	case models.ActivityView:
		_, err = h.tracker.RecordView(ctx, req.UserID, req.ProductID, req.ViewTime)
	case models.ActivityCartAdd:
		_, err = h.tracker.RecordCartAdd(ctx, req.UserID, req.ProductID)
	case models.ActivityPurchase:
		_, err = h.tracker.RecordPurchase(ctx, req.UserID, req.ProductID)
	}

	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}

		h.logger.WithError(err).WithFields(logrus.Fields{
			"type":       activityType,
			"user_id":    req.UserID,
			"product_id": req.ProductID,
		}).Error("Failed to record activity")
		respondError(c, http.StatusInternalServerError, "ACTIVITY_RECORD_FAILED", "Failed to record activity")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func validationDetails(err error) map[string]string {
	details := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			details[fieldErr.Field()] = fieldErr.Tag()
		}
	}

	return details
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
