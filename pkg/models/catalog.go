package models

// CatalogEntry is the normalized form of an anime coming from an import source.
// All sources map into this structure before anything is written.
type CatalogEntry struct {
	Title        string                `json:"title" yaml:"title"`
	ExTitle      string                `json:"exTitle,omitempty" yaml:"ex_title,omitempty"`
	Slug         string                `json:"slug,omitempty" yaml:"slug,omitempty"`
	Description  string                `json:"description,omitempty" yaml:"description,omitempty"`
	ImageURL     string                `json:"imageUrl,omitempty" yaml:"image_url,omitempty"`
	ReleaseYear  int                   `json:"releaseYear,omitempty" yaml:"release_year,omitempty"`
	TotalEpisode int                   `json:"totalEpisode" yaml:"total_episode"`
	Genres       []string              `json:"genres,omitempty" yaml:"genres,omitempty"`
	Episodes     []CatalogEpisodeEntry `json:"episodes,omitempty" yaml:"episodes,omitempty"`
	Sources      []string              `json:"sources,omitempty" yaml:"-"`
}

type CatalogEpisodeEntry struct {
	Title    string `json:"title" yaml:"title"`
	Season   int    `json:"season,omitempty" yaml:"season,omitempty"`
	Number   int    `json:"number" yaml:"number"`
	VideoURL string `json:"videoUrl,omitempty" yaml:"video_url,omitempty"`
	Duration int    `json:"duration,omitempty" yaml:"duration,omitempty"`
}
