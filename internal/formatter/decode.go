package formatter

import (
	"fmt"
	"strconv"

	"github.com/desertthunder/musicvault/internal/models"
	"gopkg.in/yaml.v3"
)

// songFrontmatter mirrors the block written by [SerializeFrontmatter].
//
// Scalars that may hold the "" sentinel decode into yaml.Node.
type songFrontmatter struct {
	Name        string    `yaml:"Song Name"`
	Link        string    `yaml:"Song link"`
	TrackID     string    `yaml:"track_id"`
	ISRC        string    `yaml:"isrc"`
	DurationMs  yaml.Node `yaml:"duration_ms"`
	Explicit    yaml.Node `yaml:"explicit"`
	Popularity  yaml.Node `yaml:"popularity"`
	Artists     []string  `yaml:"artists_all"`
	ArtistIDs   []string  `yaml:"artist_ids_all"`
	ArtistLinks []string  `yaml:"artist_links_all"`
	Genres      []string  `yaml:"genres"`
	AlbumName   string    `yaml:"Album name"`
	ReleaseDate string    `yaml:"Release date"`
}

// DecodeFrontmatter reads the song record back out of a note.
//
// Unknown keys are ignored so users may add their own properties to the block.
func DecodeFrontmatter(doc string) (models.Song, error) {
	block, _, ok := SplitFrontmatter(doc)
	if !ok {
		return models.Song{}, fmt.Errorf("no frontmatter block")
	}

	inner := block[len(Delimiter)+1:]
	if i := lastDelimiter(inner); i >= 0 {
		inner = inner[:i]
	}

	var fm songFrontmatter
	if err := yaml.Unmarshal([]byte(inner), &fm); err != nil {
		return models.Song{}, fmt.Errorf("invalid frontmatter: %w", err)
	}

	song := models.Song{
		TrackID: fm.TrackID,
		Name:    fm.Name,
		Link:    fm.Link,
		ISRC:    fm.ISRC,
		Genres:  fm.Genres,
	}

	var err error
	if song.DurationMs, err = optionalInt(fm.DurationMs); err != nil {
		return models.Song{}, fmt.Errorf("duration_ms: %w", err)
	}
	if song.Popularity, err = optionalInt(fm.Popularity); err != nil {
		return models.Song{}, fmt.Errorf("popularity: %w", err)
	}
	if song.Explicit, err = optionalBool(fm.Explicit); err != nil {
		return models.Song{}, fmt.Errorf("explicit: %w", err)
	}

	for i, name := range fm.Artists {
		a := models.Artist{Name: name}
		if i < len(fm.ArtistIDs) {
			a.ID = fm.ArtistIDs[i]
		}
		if i < len(fm.ArtistLinks) {
			a.Link = fm.ArtistLinks[i]
		}
		song.Artists = append(song.Artists, a)
	}

	if fm.AlbumName != "" || fm.ReleaseDate != "" {
		song.Album = &models.Album{Name: fm.AlbumName, ReleaseDate: fm.ReleaseDate}
	}
	return song, nil
}

// lastDelimiter returns the index of the closing "---" line inside the block body.
func lastDelimiter(s string) int {
	for i := len(s) - len(Delimiter); i >= 0; i-- {
		if s[i:i+len(Delimiter)] == Delimiter && (i == 0 || s[i-1] == '\n') {
			return i
		}
	}
	return -1
}

func optionalInt(n yaml.Node) (*int, error) {
	if n.Kind == 0 || n.Value == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalBool(n yaml.Node) (*bool, error) {
	if n.Kind == 0 || n.Value == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(n.Value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
