package command

import (
	"errors"
	"testing"

	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/player"
	"github.com/danmuck/connstate/internal/protocol/schema"
	"github.com/danmuck/connstate/internal/testutil/testlog"
)

func playerButton(name string, cmd player.Command, slots ...Slot) Button {
	return Button{PlayerCommand: cmd, DisplayName: name, Enabled: true, Slots: slots}
}

func customButton(name, action string, slots ...Slot) Button {
	extras := bundle.New()
	extras.PutString(0, "x")
	sc := NewCustom(action, extras)
	return Button{SessionCommand: &sc, DisplayName: name, Enabled: true, Slots: slots}
}

func names(buttons []Button) []string {
	out := make([]string, len(buttons))
	for i, b := range buttons {
		out[i] = b.DisplayName
	}
	return out
}

func TestSessionCommandsSetSemantics(t *testing.T) {
	testlog.Start(t)
	like := NewCustom("like", nil)
	set := NewSessionCommands(like, NewPredefined(CodeSetRating), NewCustom("like", nil))
	if set.Len() != 2 {
		t.Fatalf("expected duplicates collapsed, got %d", set.Len())
	}
	if !set.Contains(like) || !set.ContainsCode(CodeSetRating) || set.ContainsCode(CodeLibrarySearch) {
		t.Fatalf("membership mismatch: %+v", set.List())
	}
	reordered := NewSessionCommands(NewPredefined(CodeSetRating), like)
	if !set.Equal(reordered) {
		t.Fatalf("set equality should not depend on input order")
	}
	if EmptySessionCommands.Union(set).Len() != 2 {
		t.Fatalf("union with empty should keep members")
	}
}

func TestSessionCommandsBundleRoundTrip(t *testing.T) {
	testlog.Start(t)
	extras := bundle.New()
	extras.PutInt(1, 7)
	in := NewSessionCommands(NewCustom("shuffle-all", extras), NewPredefined(CodeLibraryGetRoot))
	out, err := SessionCommandsFromBundle(in.ToBundle())
	if err != nil {
		t.Fatalf("decode session commands: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("round trip mismatch: %+v", out.List())
	}
	for _, c := range out.List() {
		if c.IsCustom() && !c.CustomExtras.Equal(extras) {
			t.Fatalf("custom extras lost: %+v", c)
		}
	}
}

func TestSessionCommandsMalformedElement(t *testing.T) {
	testlog.Start(t)
	bad := bundle.New()
	bad.PutString(schema.FieldSessionCommandCode, "one")
	b := bundle.New()
	b.PutList(schema.FieldSessionCommandsList, []*bundle.Bundle{bad})
	if _, err := SessionCommandsFromBundle(b); !errors.Is(err, schema.ErrMalformedSubRecord) {
		t.Fatalf("expected ErrMalformedSubRecord, got %v", err)
	}
}

func TestButtonRoundTrip(t *testing.T) {
	testlog.Start(t)
	extras := bundle.New()
	extras.PutBool(3, true)
	in := customButton("Like", "like", SlotBack, SlotOverflow)
	in.IconURI = "content://icons/like"
	in.Icon = 57399
	in.Extras = extras
	out, err := ButtonFromBundle(in.ToBundle(), 7)
	if err != nil {
		t.Fatalf("decode button: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestButtonShapeEnabledDefault(t *testing.T) {
	testlog.Start(t)
	b := playerButton("Play", player.CommandPlayPause).ToBundle()
	b.Remove(schema.FieldButtonEnabled)

	cases := []struct {
		version int
		want    bool
	}{
		{0, true},
		{2, true},
		{3, false},
		{7, false},
	}
	for _, tc := range cases {
		got, err := ButtonFromBundle(b, tc.version)
		if err != nil {
			t.Fatalf("version %d: %v", tc.version, err)
		}
		if got.Enabled != tc.want {
			t.Fatalf("version %d: enabled=%v want %v", tc.version, got.Enabled, tc.want)
		}
	}
}

func TestButtonAbsentSlotsDefaultToOverflow(t *testing.T) {
	testlog.Start(t)
	out, err := ButtonFromBundle(playerButton("Stop", player.CommandStop).ToBundle(), 7)
	if err != nil {
		t.Fatalf("decode button: %v", err)
	}
	if len(out.Slots) != 1 || out.Slots[0] != SlotOverflow {
		t.Fatalf("expected overflow slot, got %v", out.Slots)
	}
}

func TestButtonMalformedSessionCommand(t *testing.T) {
	testlog.Start(t)
	bad := bundle.New()
	bad.PutBool(schema.FieldSessionCommandCustomAction, true)
	b := bundle.New()
	b.PutBundle(schema.FieldButtonSessionCommand, bad)
	_, err := ButtonFromBundle(b, 7)
	var verr schema.ValidationError
	if !errors.As(err, &verr) || verr.Tag != schema.FieldButtonSessionCommand {
		t.Fatalf("expected validation error on session_command, got %v", err)
	}
	if !errors.Is(err, schema.ErrMalformedSubRecord) {
		t.Fatalf("expected ErrMalformedSubRecord, got %v", err)
	}
}

func TestButtonRetiredIconTagIgnored(t *testing.T) {
	testlog.Start(t)
	b := playerButton("Play", player.CommandPlayPause, SlotCentral).ToBundle()
	b.PutString(schema.FieldButtonIconResID, "legacy")
	if _, err := ButtonFromBundle(b, 7); err != nil {
		t.Fatalf("retired tag should be ignored: %v", err)
	}
}

func TestCopyWithSlotsDoesNotAlias(t *testing.T) {
	testlog.Start(t)
	in := customButton("Like", "like", SlotBack)
	out := in.CopyWithSlots(SlotOverflow)
	out.SessionCommand.CustomAction = "changed"
	if in.Slots[0] != SlotBack || in.SessionCommand.CustomAction != "like" {
		t.Fatalf("copy aliases the original: %+v", in)
	}
}

func TestFlattenOrdersBackForwardOverflow(t *testing.T) {
	testlog.Start(t)
	prefs := []Button{
		playerButton("menu", player.CommandStop, SlotOverflow),
		playerButton("next", player.CommandSeekToNext, SlotForward, SlotOverflow),
		playerButton("play", player.CommandPlayPause, SlotCentral),
		playerButton("prev", player.CommandSeekToPrevious, SlotBack, SlotOverflow),
		playerButton("prev2", player.CommandSeekBack, SlotBack, SlotOverflow),
	}
	out := FlattenPreferences(prefs, true, true)
	got := names(out)
	want := []string{"prev", "next", "menu", "prev2"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	wantSlots := []Slot{SlotBack, SlotForward, SlotOverflow, SlotOverflow}
	for i, b := range out {
		if len(b.Slots) != 1 || b.Slots[0] != wantSlots[i] {
			t.Fatalf("button %s: slots %v want [%d]", b.DisplayName, b.Slots, wantSlots[i])
		}
	}
	if len(prefs[1].Slots) != 2 {
		t.Fatalf("flatten mutated its input")
	}
}

func TestFlattenDisallowedSlotsFallThrough(t *testing.T) {
	testlog.Start(t)
	prefs := []Button{
		playerButton("prev", player.CommandSeekToPrevious, SlotBack, SlotOverflow),
		playerButton("next", player.CommandSeekToNext, SlotForward),
	}
	out := FlattenPreferences(prefs, false, false)
	if got := names(out); len(got) != 1 || got[0] != "prev" || out[0].Slots[0] != SlotOverflow {
		t.Fatalf("unexpected flatten result %v", got)
	}
	if len(FlattenPreferences(nil, true, true)) != 0 {
		t.Fatalf("flatten of nothing should be empty")
	}
}
