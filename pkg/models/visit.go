package models

import "time"

// AnimeView records that a user watched an anime at least once.
type AnimeView struct {
	AnimeID   string    `json:"animeId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// DailyVisit is keyed by calendar date in YYYY-MM-DD form.
type DailyVisit struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}
