package models

import "time"

type RecommendationResponse struct {
	Success     bool      `json:"success"`
	Count       int       `json:"count"`
	Products    []Product `json:"products"`
	Strategy    string    `json:"strategy,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

type AnonymousRecommendationResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Products []Product `json:"products"`
}
