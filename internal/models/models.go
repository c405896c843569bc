package models

import (
	"errors"
	"slices"
)

// Artist is a credited artist on a track.
type Artist struct {
	ID   string
	Name string
	Link string
}

// Album is the release a track belongs to.
type Album struct {
	Name        string
	ReleaseDate string
}

// Song is the in-memory note record for a single track.
//
// Optional numeric and boolean fields are pointers so that "absent" survives into
// the frontmatter as an empty value rather than a misleading zero.
type Song struct {
	TrackID    string
	Name       string
	Link       string
	ISRC       string
	DurationMs *int
	Explicit   *bool
	Popularity *int
	Artists    []Artist
	Album      *Album
	Genres     []string
}

// GenreIndex maps an artist id to that artist's genres.
type GenreIndex map[string][]string

var ErrMissingTrackID = errors.New("song has no track id")

// Validate reports whether the song can be written to a note.
func (s Song) Validate() error {
	if s.TrackID == "" {
		return ErrMissingTrackID
	}
	return nil
}

// ArtistIDs returns the non-empty artist ids in credit order.
func (s Song) ArtistIDs() []string {
	ids := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Enrich returns a copy of s whose genres are the first-seen-order union of the
// genres of its artists found in idx. Artists missing from idx contribute nothing.
func (s Song) Enrich(idx GenreIndex) Song {
	seen := make(map[string]struct{})
	genres := []string{}
	for _, a := range s.Artists {
		for _, g := range idx[a.ID] {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}

	out := s.clone()
	out.Genres = genres
	return out
}

// clone copies every reference field so the result shares no memory with s.
func (s Song) clone() Song {
	out := s
	out.Artists = slices.Clone(s.Artists)
	out.Genres = slices.Clone(s.Genres)
	if s.DurationMs != nil {
		v := *s.DurationMs
		out.DurationMs = &v
	}
	if s.Explicit != nil {
		v := *s.Explicit
		out.Explicit = &v
	}
	if s.Popularity != nil {
		v := *s.Popularity
		out.Popularity = &v
	}
	if s.Album != nil {
		a := *s.Album
		out.Album = &a
	}
	return out
}
