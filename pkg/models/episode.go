package models

import "time"

// DefaultSeason is used when an episode is submitted without a season.
const DefaultSeason = 1

type Episode struct {
	ID        string    `json:"id"`
	AnimeID   string    `json:"animeId"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Season    int       `json:"season"`
	Number    int       `json:"number"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	Duration  int       `json:"duration,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
