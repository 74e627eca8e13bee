package models

import "time"

type Favorite struct {
	UserID    string    `json:"userId"`
	AnimeID   string    `json:"animeId"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type WatchLaterItem struct {
	UserID        string    `json:"userId"`
	EpisodeID     string    `json:"episodeId"`
	EpisodeTitle  string    `json:"episodeTitle"`
	EpisodeNumber int       `json:"episodeNumber"`
	EpisodeSeason int       `json:"episodeSeason"`
	EpisodeSlug   string    `json:"episodeSlug"`
	AnimeID       string    `json:"animeId"`
	AnimeTitle    string    `json:"animeTitle"`
	AnimeSlug     string    `json:"animeSlug"`
	AddedAt       time.Time `json:"addedAt"`
}
