// Package formatter renders song notes.
//
// A song note is a text document whose first line is "---", followed by one
// "key: value" pair per line, a closing "---" line, and free-form body text.
// Only the block is ever rewritten; the body belongs to the user.
package formatter

import (
	"strconv"
	"strings"

	"github.com/desertthunder/musicvault/internal/models"
)

// Delimiter opens and closes the frontmatter block.
const Delimiter = "---"

// TrackIDKey is the line key that ties a note to a track.
const TrackIDKey = "track_id"

// Keys lists the frontmatter keys in the order they are written.
var Keys = []string{
	"Song Name",
	"Song link",
	TrackIDKey,
	"isrc",
	"duration_ms",
	"explicit",
	"popularity",
	"artists_all",
	"artist_ids_all",
	"artist_links_all",
	"genres",
	"Album name",
	"Release date",
}

// SerializeFrontmatter renders song as a complete "---" delimited block ending in a newline.
//
// Strings are double-quoted and escaped, lists are rendered as flow sequences of
// quoted strings, numbers and booleans are bare, and absent values are "".
func SerializeFrontmatter(song models.Song) string {
	names := make([]string, 0, len(song.Artists))
	ids := make([]string, 0, len(song.Artists))
	links := make([]string, 0, len(song.Artists))
	for _, a := range song.Artists {
		names = append(names, a.Name)
		ids = append(ids, a.ID)
		links = append(links, a.Link)
	}

	var albumName, releaseDate string
	if song.Album != nil {
		albumName = song.Album.Name
		releaseDate = song.Album.ReleaseDate
	}

	values := []string{
		Quote(song.Name),
		Quote(song.Link),
		Quote(song.TrackID),
		Quote(song.ISRC),
		bareInt(song.DurationMs),
		bareBool(song.Explicit),
		bareInt(song.Popularity),
		quoteList(names),
		quoteList(ids),
		quoteList(links),
		quoteList(song.Genres),
		Quote(albumName),
		Quote(releaseDate),
	}

	var b strings.Builder
	b.WriteString(Delimiter + "\n")
	for i, key := range Keys {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(values[i])
		b.WriteByte('\n')
	}
	b.WriteString(Delimiter + "\n")
	return b.String()
}

// NewDocument returns the content of a freshly created note for song: the block and an empty body.
func NewDocument(song models.Song) string {
	return SerializeFrontmatter(song)
}

// UpsertFrontmatter replaces the leading frontmatter block of doc with block and
// keeps every byte after the closing delimiter.
//
// A document without a well-formed leading block is returned unchanged.
func UpsertFrontmatter(doc, block string) string {
	_, body, ok := SplitFrontmatter(doc)
	if !ok {
		return doc
	}
	return block + body
}

// SplitFrontmatter separates doc into its leading block (delimiters included) and the body.
//
// ok is false when doc does not start with a "---" line or the block is never closed.
func SplitFrontmatter(doc string) (block, body string, ok bool) {
	first, rest, found := strings.Cut(doc, "\n")
	if !found || strings.TrimSuffix(first, "\r") != Delimiter {
		return "", doc, false
	}

	offset := len(first) + 1
	for len(rest) > 0 {
		line, next, more := strings.Cut(rest, "\n")
		end := offset + len(line)
		if more {
			end++
		}
		if strings.TrimSuffix(line, "\r") == Delimiter {
			return doc[:end], doc[end:], true
		}
		offset = end
		rest = next
	}
	return "", doc, false
}

// FrontmatterLines returns the key/value lines between the delimiters, without line endings.
func FrontmatterLines(doc string) ([]string, bool) {
	block, _, ok := SplitFrontmatter(doc)
	if !ok {
		return nil, false
	}
	lines := strings.Split(block, "\n")
	// drop the opening delimiter, the closing delimiter and the trailing empty element
	var out []string
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if line == Delimiter {
			break
		}
		out = append(out, line)
	}
	return out, true
}

// ParseTrackID extracts the track_id value from doc's frontmatter block.
//
// The grammar is one "key: value" pair per line; the key is everything before the
// first colon, trimmed. The value is either a double-quoted string using the
// escapes written by [Quote] or a bare token. Text outside the block is never consulted.
func ParseTrackID(doc string) (string, bool) {
	lines, ok := FrontmatterLines(doc)
	if !ok {
		return "", false
	}
	for _, line := range lines {
		key, value, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(key) != TrackIDKey {
			continue
		}
		id, err := Unquote(strings.TrimSpace(value))
		if err != nil || id == "" {
			return "", false
		}
		return id, true
	}
	return "", false
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r", `\r`,
	"\n", `\n`,
	"\t", `\t`,
)

// Quote renders s as a double-quoted YAML scalar that stays on one line.
func Quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}

// Unquote reverses [Quote]. Values that are not double-quoted are returned trimmed as-is.
func Unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s, nil
	}

	inner := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			return "", strconv.ErrSyntax
		}
		switch inner[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			return "", strconv.ErrSyntax
		}
	}
	return b.String(), nil
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = Quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func bareInt(v *int) string {
	if v == nil {
		return `""`
	}
	return strconv.Itoa(*v)
}

func bareBool(v *bool) string {
	if v == nil {
		return `""`
	}
	return strconv.FormatBool(*v)
}
