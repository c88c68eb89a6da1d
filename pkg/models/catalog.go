package models

import "time"

type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Product struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Price      float64   `json:"price" db:"price"`
	Rating     float64   `json:"rating" db:"rating"`
	NumReviews int       `json:"num_reviews" db:"num_reviews"`
	CategoryID string    `json:"category_id,omitempty" db:"category_id"`
	Category   *Category `json:"category,omitempty"`
	ImageURL   *string   `json:"image_url,omitempty" db:"image_url"`
}

// ActivityRecord is the behavioral history of one user on one product.
// UserID, Product and Category are nil when the referenced row no longer exists.
type ActivityRecord struct {
	ID              int64     `json:"id" db:"id"`
	UserID          *string   `json:"user_id,omitempty" db:"user_id"`
	Product         *Product  `json:"product,omitempty"`
	Category        *Category `json:"category,omitempty"`
	ViewCount       int       `json:"view_count" db:"view_count"`
	ViewTime        int       `json:"view_time" db:"view_time"` // seconds
	CartAddCount    int       `json:"cart_add_count" db:"cart_add_count"`
	PurchaseCount   int       `json:"purchase_count" db:"purchase_count"`
	LastInteraction time.Time `json:"last_interaction" db:"last_interaction"`
}
