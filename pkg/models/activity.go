package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActivityView     = "view"
	ActivityCartAdd  = "cart_add"
	ActivityPurchase = "purchase"
)

type ActivityRequest struct {
	UserID    string `json:"userId" validate:"required,max=64"`
	ProductID string `json:"productId" validate:"required,max=64"`
	ViewTime  int    `json:"viewTime,omitempty" validate:"min=0,max=86400"`
}

// ActivityEvent is published after an activity counter has been persisted
type ActivityEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	ProductID  string    `json:"product_id"`
	CategoryID string    `json:"category_id,omitempty"`
	ViewTime   int       `json:"view_time,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
