package utils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s, strips diacritics and joins the remaining letters and
// digits with single dashes. "Shingeki no Kyojin: Season 3" becomes
// "shingeki-no-kyojin-season-3".
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			dash = true
		}
	}
	return b.String()
}

// EpisodeSlug is the slug of episode number within season of the anime with
// slug animeSlug.
func EpisodeSlug(animeSlug string, season, number int) string {
	return Slugify(animeSlug + " season " + strconv.Itoa(season) + " episode " + strconv.Itoa(number))
}

// TitleCase is used for display names such as genres.
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}
