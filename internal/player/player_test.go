package player

import (
	"errors"
	"testing"

	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/protocol/schema"
	"github.com/danmuck/connstate/internal/testutil/testlog"
)

func playingInfo() Info {
	song := MediaItem{MediaID: "song-1", Title: "Intro", Artist: "Band", DurationMs: 180000}
	return Info{
		PlaybackState:      StateReady,
		PlayWhenReady:      true,
		IsPlaying:          true,
		RepeatMode:         RepeatAll,
		ShuffleModeEnabled: true,
		SpeedPermille:      1500,
		VolumePercent:      40,
		CurrentMediaItem:   song,
		PositionMs:         1200,
		BufferedPositionMs: 5000,
		DurationMs:         180000,
		Timeline:           []MediaItem{song, {MediaID: "song-2", Title: "Outro"}},
		CurrentIndex:       0,
		Tracks:             []Track{{ID: "a0", Type: TrackAudio, Selected: true}, {ID: "t0", Type: TrackText}},
		PlaylistTitle:      "Album",
	}
}

func TestIntersectIsCommutativeAndIdempotent(t *testing.T) {
	testlog.Start(t)
	a := NewCommands(CommandPlayPause, CommandStop, CommandGetTimeline, CommandGetTracks)
	b := NewCommands(CommandGetTracks, CommandPlayPause, CommandSetVolume)

	ab := Intersect(a, b)
	ba := Intersect(b, a)
	if !ab.Equal(ba) {
		t.Fatalf("intersect not commutative: %v vs %v", ab.List(), ba.List())
	}
	if !Intersect(a, a).Equal(a) {
		t.Fatalf("intersect not idempotent: %v", Intersect(a, a).List())
	}
	want := NewCommands(CommandPlayPause, CommandGetTracks)
	if !ab.Equal(want) {
		t.Fatalf("unexpected intersection: %v", ab.List())
	}
	if Intersect(a, EmptyCommands).Len() != 0 {
		t.Fatalf("intersection with empty set should be empty")
	}
}

func TestNewCommandsDeduplicatesAndOrders(t *testing.T) {
	testlog.Start(t)
	c := NewCommands(CommandStop, CommandPlayPause, CommandStop)
	list := c.List()
	if len(list) != 2 || list[0] != CommandPlayPause || list[1] != CommandStop {
		t.Fatalf("unexpected list: %v", list)
	}
	if !c.Union(NewCommands(CommandSeekBack)).Contains(CommandSeekBack) {
		t.Fatalf("union missing command")
	}
	if !c.ContainsAny(CommandSeekBack, CommandStop) || c.ContainsAny(CommandSeekBack) {
		t.Fatalf("ContainsAny mismatch")
	}
}

func TestCommandsBundleRoundTripKeepsUnknownValues(t *testing.T) {
	testlog.Start(t)
	in := NewCommands(CommandPlayPause, Command(900))
	out, err := CommandsFromBundle(in.ToBundle())
	if err != nil {
		t.Fatalf("decode commands: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("round trip mismatch: %v", out.List())
	}
	empty, err := CommandsFromBundle(bundle.New())
	if err != nil || empty.Len() != 0 {
		t.Fatalf("empty bundle should decode to empty set: %v %v", empty.List(), err)
	}
}

func TestCommandsFromBundleWrongKindIsMalformed(t *testing.T) {
	testlog.Start(t)
	b := bundle.New()
	b.PutString(schema.FieldPlayerCommandsList, "play")
	if _, err := CommandsFromBundle(b); !errors.Is(err, schema.ErrMalformedSubRecord) {
		t.Fatalf("expected ErrMalformedSubRecord, got %v", err)
	}
}

func TestFilterWithAllCommandsKeepsEverything(t *testing.T) {
	testlog.Start(t)
	in := playingInfo()
	out := in.FilterByAvailableCommands(AllCommands(), false, false)
	if !out.Equal(in) {
		t.Fatalf("filter with all commands changed info: %+v", out)
	}
}

func TestFilterWithoutCommandsHidesState(t *testing.T) {
	testlog.Start(t)
	in := playingInfo()
	out := in.FilterByAvailableCommands(EmptyCommands, false, false)
	if !out.CurrentMediaItem.IsZero() || out.PositionMs != 0 || out.DurationMs != 0 {
		t.Fatalf("current item should be hidden: %+v", out)
	}
	if len(out.Timeline) != 0 || len(out.Tracks) != 0 {
		t.Fatalf("timeline and tracks should be hidden: %+v", out)
	}
	if out.PlaylistTitle != "" || out.VolumePercent != DefaultVolumePercent {
		t.Fatalf("metadata and volume should be hidden: %+v", out)
	}
	if !out.IsPlaying || out.RepeatMode != RepeatAll {
		t.Fatalf("playback flags should survive filtering: %+v", out)
	}
	if len(in.Timeline) != 2 || len(in.Tracks) != 2 {
		t.Fatalf("filter mutated its receiver")
	}
}

func TestFilterTimelineFallsBackToCurrentItem(t *testing.T) {
	testlog.Start(t)
	in := playingInfo()
	in.CurrentIndex = 1
	cmds := NewCommands(CommandGetCurrentMediaItem, CommandGetTracks)
	out := in.FilterByAvailableCommands(cmds, false, true)
	if len(out.Timeline) != 1 || out.Timeline[0] != in.CurrentMediaItem || out.CurrentIndex != 0 {
		t.Fatalf("expected single-item timeline, got %+v", out.Timeline)
	}
	if len(out.Tracks) != 0 {
		t.Fatalf("excludeTracks should drop tracks")
	}
}

func TestInfoRoundTripAtCurrentVersion(t *testing.T) {
	testlog.Start(t)
	in := playingInfo()
	out, err := InfoFromBundle(in.ToBundleForRemoteProcess(7))
	if err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestInfoShapeTable(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		version int
		want    infoShape
	}{
		{0, infoShape{}},
		{3, infoShape{}},
		{4, infoShape{explicitIsPlaying: true}},
		{5, infoShape{explicitIsPlaying: true}},
		{6, infoShape{explicitIsPlaying: true, tracks: true}},
		{42, infoShape{explicitIsPlaying: true, tracks: true}},
	}
	for _, tc := range cases {
		if got := infoShapeFor(tc.version); got != tc.want {
			t.Fatalf("version %d: got %+v want %+v", tc.version, got, tc.want)
		}
	}
}

func TestLegacyShapeDerivesIsPlayingAndDropsTracks(t *testing.T) {
	testlog.Start(t)
	in := playingInfo()
	b := in.ToBundleForRemoteProcess(3)
	if b.Has(schema.FieldInfoIsPlaying) || b.Has(schema.FieldInfoTracks) {
		t.Fatalf("legacy layout should omit is_playing and tracks, keys=%v", b.Keys())
	}
	out, err := InfoFromBundle(b)
	if err != nil {
		t.Fatalf("decode legacy info: %v", err)
	}
	if !out.IsPlaying {
		t.Fatalf("is_playing should be derived from ready + play_when_ready")
	}
	if len(out.Tracks) != 0 {
		t.Fatalf("legacy layout has no tracks")
	}
}

func TestPresentIsPlayingAndTracksAreKept(t *testing.T) {
	testlog.Start(t)
	in := playingInfo()
	in.IsPlaying = false
	out, err := InfoFromBundle(in.ToBundleForRemoteProcess(7))
	if err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if out.IsPlaying {
		t.Fatalf("a written is_playing must not be replaced by the derived value")
	}
	if len(out.Tracks) != 2 || out.Tracks[0] != in.Tracks[0] || out.Tracks[1] != in.Tracks[1] {
		t.Fatalf("tracks not kept: %+v", out.Tracks)
	}
}

func TestInfoFromEmptyBundleIsDefault(t *testing.T) {
	testlog.Start(t)
	out, err := InfoFromBundle(bundle.New())
	if err != nil {
		t.Fatalf("decode empty info: %v", err)
	}
	if !out.Equal(DefaultInfo()) {
		t.Fatalf("expected default info, got %+v", out)
	}
}

func TestInfoMalformedTimelineItem(t *testing.T) {
	testlog.Start(t)
	bad := bundle.New()
	bad.PutInt(schema.FieldMediaItemTitle, 5)
	b := bundle.New()
	b.PutList(schema.FieldInfoTimeline, []*bundle.Bundle{bad})
	_, err := InfoFromBundle(b)
	if !errors.Is(err, schema.ErrMalformedSubRecord) {
		t.Fatalf("expected ErrMalformedSubRecord, got %v", err)
	}
}
