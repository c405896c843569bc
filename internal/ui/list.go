package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/musicvault/internal/models"
)

var _ list.Item = noteItem{}

// Note is one song note as shown in the browser.
type Note struct {
	Path string
	Song models.Song
}

// noteItem wraps [Note] to implement [list.Item].
type noteItem struct {
	note Note
}

func (i noteItem) FilterValue() string {
	return i.note.Song.Name + " " + strings.Join(artistNames(i.note.Song), " ")
}

func (i noteItem) Title() string {
	if i.note.Song.Name == "" {
		return i.note.Path
	}
	return i.note.Song.Name
}

func (i noteItem) Description() string {
	desc := strings.Join(artistNames(i.note.Song), ", ")
	if a := i.note.Song.Album; a != nil && a.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, a.Name)
	}
	if len(i.note.Song.Genres) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(i.note.Song.Genres, ", "))
	}
	return desc
}

func artistNames(s models.Song) []string {
	names := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		names = append(names, a.Name)
	}
	return names
}
