package models

import "time"

// AnimeStatus is derived from the episode count; only the reconciler writes it.
type AnimeStatus string

const (
	StatusOngoing   AnimeStatus = "ONGOING"
	StatusCompleted AnimeStatus = "COMPLETED"
)

type Anime struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	ExTitle      string      `json:"exTitle,omitempty"`
	Slug         string      `json:"slug"`
	Description  string      `json:"description,omitempty"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	ReleaseYear  int         `json:"releaseYear,omitempty"`
	TotalEpisode int         `json:"totalEpisode"`
	Status       AnimeStatus `json:"status"`
	Views        int64       `json:"views"`
	Genres       []string    `json:"genres"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// AnimeDetail is an anime together with its episode list.
type AnimeDetail struct {
	Anime
	Episodes []Episode `json:"episodes"`
}

// AnimeInput carries the admin-editable fields of an anime. Status and views
// are deliberately absent.
type AnimeInput struct {
	Title        string `json:"title"`
	ExTitle      string `json:"exTitle"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	ReleaseYear  int    `json:"releaseYear"`
	TotalEpisode int    `json:"totalEpisode"`
}
