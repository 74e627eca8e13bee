package sync

import (
	"time"

	"animehub/pkg/models"
)

const (
	EventAnimeStatus    = "anime.status"
	EventAnimeViews     = "anime.views"
	EventAnimeRating    = "anime.rating"
	EventEpisodeCreated = "episode.created"
	EventEpisodeUpdated = "episode.updated"
	EventEpisodeDeleted = "episode.deleted"
)

// Event is the one envelope pushed to TCP, websocket and NATS subscribers.
// Fields that do not apply to the event type are omitted.
type Event struct {
	Type         string             `json:"type"`
	AnimeID      string             `json:"animeId"`
	EpisodeID    string             `json:"episodeId,omitempty"`
	UserID       string             `json:"userId,omitempty"`
	Status       models.AnimeStatus `json:"status,omitempty"`
	Views        int64              `json:"views,omitempty"`
	AverageScore float64            `json:"averageScore,omitempty"`
	TotalRatings int                `json:"totalRatings,omitempty"`
	At           time.Time          `json:"at"`
}

// Publisher fans events out. Implementations must not block the caller for
// long; request handlers publish inline.
type Publisher interface {
	Publish(ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}

// Multi publishes to each non-nil publisher in order.
type Multi []Publisher

func (m Multi) Publish(ev Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ev)
		}
	}
}

// Stamp fills At when the caller left it zero.
func Stamp(ev Event) Event {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}
