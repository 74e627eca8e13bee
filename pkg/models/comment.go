package models

import "time"

const MaxCommentLength = 2000

type Comment struct {
	ID        string    `json:"id"`
	EpisodeID string    `json:"episodeId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
