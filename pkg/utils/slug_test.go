package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Shingeki no Kyojin: Season 3": "shingeki-no-kyojin-season-3",
		"  Pokémon   Horizons ":        "pokemon-horizons",
		"Re:Zero -Starting Life-":      "re-zero-starting-life",
		"!!!":                          "",
		"Dr. STONE":                    "dr-stone",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestEpisodeSlug(t *testing.T) {
	assert.Equal(t, "one-piece-season-1-episode-12", EpisodeSlug("one-piece", 1, 12))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Slice Of Life", TitleCase(" slice of life "))
}
