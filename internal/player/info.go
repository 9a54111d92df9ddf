package player

import (
	"fmt"
	"slices"
)

type PlaybackState int

const (
	StateIdle      PlaybackState = 1
	StateBuffering PlaybackState = 2
	StateReady     PlaybackState = 3
	StateEnded     PlaybackState = 4
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type RepeatMode int

const (
	RepeatOff RepeatMode = 0
	RepeatOne RepeatMode = 1
	RepeatAll RepeatMode = 2
)

type TrackType int

const (
	TrackUnknown TrackType = 0
	TrackAudio   TrackType = 1
	TrackVideo   TrackType = 2
	TrackText    TrackType = 3
)

const (
	DefaultSpeedPermille = 1000
	DefaultVolumePercent = 100
)

// MediaItem is the part of a playlist entry a controller displays.
type MediaItem struct {
	MediaID    string
	Title      string
	Artist     string
	DurationMs int64
}

func (m MediaItem) IsZero() bool {
	return m == MediaItem{}
}

// Track is one selectable track of the current item.
type Track struct {
	ID       string
	Type     TrackType
	Selected bool
}

// Info is the player snapshot sent to a controller when it connects.
type Info struct {
	PlaybackState      PlaybackState
	PlayWhenReady      bool
	IsPlaying          bool
	RepeatMode         RepeatMode
	ShuffleModeEnabled bool
	SpeedPermille      int
	VolumePercent      int
	CurrentMediaItem   MediaItem
	PositionMs         int64
	BufferedPositionMs int64
	DurationMs         int64
	Timeline           []MediaItem
	CurrentIndex       int
	Tracks             []Track
	PlaylistTitle      string
}

// DefaultInfo is the canonical snapshot of an idle player with nothing loaded.
func DefaultInfo() Info {
	return Info{
		PlaybackState: StateIdle,
		RepeatMode:    RepeatOff,
		SpeedPermille: DefaultSpeedPermille,
		VolumePercent: DefaultVolumePercent,
	}
}

func (i Info) Clone() Info {
	out := i
	out.Timeline = slices.Clone(i.Timeline)
	out.Tracks = slices.Clone(i.Tracks)
	return out
}

// Equal compares field by field; nil and empty lists are equal.
func (i Info) Equal(o Info) bool {
	return i.PlaybackState == o.PlaybackState &&
		i.PlayWhenReady == o.PlayWhenReady &&
		i.IsPlaying == o.IsPlaying &&
		i.RepeatMode == o.RepeatMode &&
		i.ShuffleModeEnabled == o.ShuffleModeEnabled &&
		i.SpeedPermille == o.SpeedPermille &&
		i.VolumePercent == o.VolumePercent &&
		i.CurrentMediaItem == o.CurrentMediaItem &&
		i.PositionMs == o.PositionMs &&
		i.BufferedPositionMs == o.BufferedPositionMs &&
		i.DurationMs == o.DurationMs &&
		slices.Equal(i.Timeline, o.Timeline) &&
		i.CurrentIndex == o.CurrentIndex &&
		slices.Equal(i.Tracks, o.Tracks) &&
		i.PlaylistTitle == o.PlaylistTitle
}

// FilterByAvailableCommands returns a copy of i with everything removed that a
// controller holding cmds may not read. excludeTimeline and excludeTracks drop
// those parts even when the commands would allow them.
func (i Info) FilterByAvailableCommands(cmds Commands, excludeTimeline, excludeTracks bool) Info {
	out := i.Clone()
	canReadItem := cmds.Contains(CommandGetCurrentMediaItem)
	if !canReadItem {
		out.CurrentMediaItem = MediaItem{}
		out.PositionMs = 0
		out.BufferedPositionMs = 0
		out.DurationMs = 0
	}
	if excludeTimeline || !cmds.Contains(CommandGetTimeline) {
		out.Timeline = nil
		out.CurrentIndex = 0
		if canReadItem && !i.CurrentMediaItem.IsZero() {
			out.Timeline = []MediaItem{i.CurrentMediaItem}
		}
	}
	if !cmds.Contains(CommandGetMetadata) {
		out.PlaylistTitle = ""
	}
	if !cmds.Contains(CommandGetVolume) {
		out.VolumePercent = DefaultVolumePercent
	}
	if excludeTracks || !cmds.Contains(CommandGetTracks) {
		out.Tracks = nil
	}
	return out
}
