package models

import "time"

const (
	MinScore = 1
	MaxScore = 10
)

type Rating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	AnimeID   string    `json:"animeId"`
	Score     float64   `json:"score"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RatingSummary is the aggregate returned alongside every rating mutation.
type RatingSummary struct {
	AverageScore float64 `json:"averageScore"`
	TotalRatings int     `json:"totalRatings"`
}
