package player

import (
	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/protocol/schema"
)

// infoShape is the set of optional parts a given interface version carries.
type infoShape struct {
	explicitIsPlaying bool
	tracks            bool
}

// infoShapes maps interface versions to the player info layout. Each entry
// applies from its version until the next entry.
var infoShapes = []struct {
	since int
	shape infoShape
}{
	{since: 0, shape: infoShape{}},
	{since: 4, shape: infoShape{explicitIsPlaying: true}},
	{since: 6, shape: infoShape{explicitIsPlaying: true, tracks: true}},
}

func infoShapeFor(interfaceVersion int) infoShape {
	shape := infoShapes[0].shape
	for _, r := range infoShapes {
		if interfaceVersion >= r.since {
			shape = r.shape
		}
	}
	return shape
}

// ToBundleForRemoteProcess encodes i in the layout a peer at
// interfaceVersion understands.
func (i Info) ToBundleForRemoteProcess(interfaceVersion int) *bundle.Bundle {
	shape := infoShapeFor(interfaceVersion)
	b := bundle.New()
	b.PutInt(schema.FieldInfoPlaybackState, int(i.PlaybackState))
	b.PutBool(schema.FieldInfoPlayWhenReady, i.PlayWhenReady)
	if shape.explicitIsPlaying {
		b.PutBool(schema.FieldInfoIsPlaying, i.IsPlaying)
	}
	b.PutInt(schema.FieldInfoRepeatMode, int(i.RepeatMode))
	b.PutBool(schema.FieldInfoShuffleModeEnabled, i.ShuffleModeEnabled)
	b.PutInt(schema.FieldInfoSpeedPermille, i.SpeedPermille)
	b.PutInt(schema.FieldInfoVolumePercent, i.VolumePercent)
	if !i.CurrentMediaItem.IsZero() {
		b.PutBundle(schema.FieldInfoCurrentMediaItem, i.CurrentMediaItem.toBundle())
	}
	b.PutInt64(schema.FieldInfoPositionMs, i.PositionMs)
	b.PutInt64(schema.FieldInfoBufferedPositionMs, i.BufferedPositionMs)
	b.PutInt64(schema.FieldInfoDurationMs, i.DurationMs)
	if len(i.Timeline) > 0 {
		items := make([]*bundle.Bundle, len(i.Timeline))
		for n, item := range i.Timeline {
			items[n] = item.toBundle()
		}
		b.PutList(schema.FieldInfoTimeline, items)
	}
	b.PutInt(schema.FieldInfoCurrentIndex, i.CurrentIndex)
	if shape.tracks && len(i.Tracks) > 0 {
		tracks := make([]*bundle.Bundle, len(i.Tracks))
		for n, track := range i.Tracks {
			tracks[n] = track.toBundle()
		}
		b.PutList(schema.FieldInfoTracks, tracks)
	}
	if i.PlaylistTitle != "" {
		b.PutString(schema.FieldInfoPlaylistTitle, i.PlaylistTitle)
	}
	return b
}

// InfoFromBundle decodes a snapshot in any layout. Parts an older layout left
// out are derived or take their DefaultInfo value.
func InfoFromBundle(b *bundle.Bundle) (Info, error) {
	reg := schema.PlayerInfo
	if err := reg.Validate(b); err != nil {
		return Info{}, err
	}
	def := DefaultInfo()
	out := def
	var err error

	// Validate has checked every kind, so scalar getters cannot fail here.
	state, _ := b.Int(schema.FieldInfoPlaybackState, int(def.PlaybackState))
	out.PlaybackState = PlaybackState(state)
	out.PlayWhenReady, _ = b.Bool(schema.FieldInfoPlayWhenReady, def.PlayWhenReady)
	if b.Has(schema.FieldInfoIsPlaying) {
		out.IsPlaying, _ = b.Bool(schema.FieldInfoIsPlaying, false)
	} else {
		out.IsPlaying = out.PlaybackState == StateReady && out.PlayWhenReady
	}
	repeat, _ := b.Int(schema.FieldInfoRepeatMode, int(def.RepeatMode))
	out.RepeatMode = RepeatMode(repeat)
	out.ShuffleModeEnabled, _ = b.Bool(schema.FieldInfoShuffleModeEnabled, def.ShuffleModeEnabled)
	out.SpeedPermille, _ = b.Int(schema.FieldInfoSpeedPermille, def.SpeedPermille)
	out.VolumePercent, _ = b.Int(schema.FieldInfoVolumePercent, def.VolumePercent)
	out.PositionMs, _ = b.Int64(schema.FieldInfoPositionMs, 0)
	out.BufferedPositionMs, _ = b.Int64(schema.FieldInfoBufferedPositionMs, 0)
	out.DurationMs, _ = b.Int64(schema.FieldInfoDurationMs, 0)
	out.CurrentIndex, _ = b.Int(schema.FieldInfoCurrentIndex, 0)
	out.PlaylistTitle, _ = b.Text(schema.FieldInfoPlaylistTitle, "")

	if nested, ok, _ := b.Nested(schema.FieldInfoCurrentMediaItem); ok {
		if out.CurrentMediaItem, err = mediaItemFromBundle(nested); err != nil {
			return Info{}, reg.Malformed(schema.FieldInfoCurrentMediaItem, err)
		}
	}
	if list, ok, _ := b.List(schema.FieldInfoTimeline); ok {
		out.Timeline = make([]MediaItem, len(list))
		for n, item := range list {
			if out.Timeline[n], err = mediaItemFromBundle(item); err != nil {
				return Info{}, reg.Malformed(schema.FieldInfoTimeline, err)
			}
		}
	}
	if list, ok, _ := b.List(schema.FieldInfoTracks); ok {
		out.Tracks = make([]Track, len(list))
		for n, item := range list {
			if out.Tracks[n], err = trackFromBundle(item); err != nil {
				return Info{}, reg.Malformed(schema.FieldInfoTracks, err)
			}
		}
	}
	return out, nil
}

func (m MediaItem) toBundle() *bundle.Bundle {
	b := bundle.New()
	if m.MediaID != "" {
		b.PutString(schema.FieldMediaItemID, m.MediaID)
	}
	if m.Title != "" {
		b.PutString(schema.FieldMediaItemTitle, m.Title)
	}
	if m.Artist != "" {
		b.PutString(schema.FieldMediaItemArtist, m.Artist)
	}
	if m.DurationMs != 0 {
		b.PutInt64(schema.FieldMediaItemDurationMs, m.DurationMs)
	}
	return b
}

func mediaItemFromBundle(b *bundle.Bundle) (MediaItem, error) {
	if err := schema.MediaItem.Validate(b); err != nil {
		return MediaItem{}, err
	}
	var m MediaItem
	m.MediaID, _ = b.Text(schema.FieldMediaItemID, "")
	m.Title, _ = b.Text(schema.FieldMediaItemTitle, "")
	m.Artist, _ = b.Text(schema.FieldMediaItemArtist, "")
	m.DurationMs, _ = b.Int64(schema.FieldMediaItemDurationMs, 0)
	return m, nil
}

func (t Track) toBundle() *bundle.Bundle {
	b := bundle.New()
	b.PutString(schema.FieldTrackID, t.ID)
	b.PutInt(schema.FieldTrackType, int(t.Type))
	b.PutBool(schema.FieldTrackSelected, t.Selected)
	return b
}

func trackFromBundle(b *bundle.Bundle) (Track, error) {
	if err := schema.Track.Validate(b); err != nil {
		return Track{}, err
	}
	var t Track
	t.ID, _ = b.Text(schema.FieldTrackID, "")
	kind, _ := b.Int(schema.FieldTrackType, int(TrackUnknown))
	t.Type = TrackType(kind)
	t.Selected, _ = b.Bool(schema.FieldTrackSelected, false)
	return t, nil
}
