package tasks

import (
	"context"

	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/services"
	"github.com/desertthunder/musicvault/internal/shared"
)

// CaptureCurrent writes a note for the currently playing track.
// It returns [shared.ErrNoActiveTrack] when nothing is playing.
func (e *NoteEngine) CaptureCurrent(ctx context.Context, folder string) (DocumentHandle, *models.Song, error) {
	var song *models.Song
	err := e.withToken(ctx, func(token string) error {
		var err error
		song, err = e.client.FetchCurrentlyPlaying(ctx, token)
		return err
	})
	if err != nil {
		return DocumentHandle{}, nil, err
	}
	if song == nil {
		return DocumentHandle{}, nil, shared.ErrNoActiveTrack
	}
	return e.write(ctx, song, folder)
}

// AddTrack writes a note for a track id, spotify:track: URI or open.spotify.com link.
func (e *NoteEngine) AddTrack(ctx context.Context, ref, folder string) (DocumentHandle, *models.Song, error) {
	trackID, err := services.ParseTrackRef(ref)
	if err != nil {
		return DocumentHandle{}, nil, err
	}
	song, err := e.fetchByID(ctx, trackID)
	if err != nil {
		return DocumentHandle{}, nil, err
	}
	return e.write(ctx, song, folder)
}

func (e *NoteEngine) write(ctx context.Context, song *models.Song, folder string) (DocumentHandle, *models.Song, error) {
	enriched := song.Enrich(e.fetchGenres(ctx, song))
	handle, err := e.LocateOrCreate(ctx, enriched, folder)
	if err != nil {
		return DocumentHandle{}, nil, err
	}
	return handle, &enriched, nil
}
