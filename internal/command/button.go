package command

import (
	"fmt"
	"slices"

	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/player"
	"github.com/danmuck/connstate/internal/protocol/schema"
)

// Slot is a position a controller may render a button in.
type Slot int

const (
	SlotCentral          Slot = 1
	SlotBack             Slot = 2
	SlotForward          Slot = 3
	SlotBackSecondary    Slot = 4
	SlotForwardSecondary Slot = 5
	SlotOverflow         Slot = 6
)

func (s Slot) String() string {
	switch s {
	case SlotCentral:
		return "central"
	case SlotBack:
		return "back"
	case SlotForward:
		return "forward"
	case SlotBackSecondary:
		return "back_secondary"
	case SlotForwardSecondary:
		return "forward_secondary"
	case SlotOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// NoPlayerCommand marks a button that triggers a session command instead.
const NoPlayerCommand player.Command = 0

// Button is one control affordance. It triggers either SessionCommand or
// PlayerCommand. Slots lists the positions it prefers, best first.
type Button struct {
	SessionCommand *SessionCommand
	PlayerCommand  player.Command
	DisplayName    string
	Icon           int
	IconURI        string
	Enabled        bool
	Slots          []Slot
	Extras         *bundle.Bundle
}

// Clone returns a deep copy of b.
func (b Button) Clone() Button {
	out := b
	if b.SessionCommand != nil {
		sc := b.SessionCommand.clone()
		out.SessionCommand = &sc
	}
	out.Slots = slices.Clone(b.Slots)
	if b.Extras != nil {
		out.Extras = b.Extras.Clone()
	}
	return out
}

// CopyWithSlots returns a copy of b whose preferred slots are replaced.
func (b Button) CopyWithSlots(slots ...Slot) Button {
	out := b.Clone()
	out.Slots = slices.Clone(slots)
	return out
}

func (b Button) Equal(o Button) bool {
	if (b.SessionCommand == nil) != (o.SessionCommand == nil) {
		return false
	}
	if b.SessionCommand != nil {
		if !b.SessionCommand.Equal(*o.SessionCommand) ||
			!b.SessionCommand.CustomExtras.Equal(o.SessionCommand.CustomExtras) {
			return false
		}
	}
	return b.PlayerCommand == o.PlayerCommand &&
		b.DisplayName == o.DisplayName &&
		b.Icon == o.Icon &&
		b.IconURI == o.IconURI &&
		b.Enabled == o.Enabled &&
		slices.Equal(b.Slots, o.Slots) &&
		b.Extras.Equal(o.Extras)
}

// ButtonsEqual compares two button lists element by element.
func ButtonsEqual(a, b []Button) bool {
	return slices.EqualFunc(a, b, Button.Equal)
}

// CloneButtons deep-copies a button list. A nil or empty list yields nil.
func CloneButtons(in []Button) []Button {
	if len(in) == 0 {
		return nil
	}
	out := make([]Button, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}

// buttonShape is how a session at some interface version writes a button.
type buttonShape struct {
	// enabledWhenAbsent is the value of a missing enabled flag.
	enabledWhenAbsent bool
}

// buttonShapes maps session interface versions to the button layout. Each
// entry applies from its version until the next entry.
var buttonShapes = []struct {
	since int
	shape buttonShape
}{
	{since: 0, shape: buttonShape{enabledWhenAbsent: true}},
	{since: 3, shape: buttonShape{enabledWhenAbsent: false}},
}

func buttonShapeFor(sessionInterfaceVersion int) buttonShape {
	shape := buttonShapes[0].shape
	for _, r := range buttonShapes {
		if sessionInterfaceVersion >= r.since {
			shape = r.shape
		}
	}
	return shape
}

func (b Button) ToBundle() *bundle.Bundle {
	out := bundle.New()
	if b.SessionCommand != nil {
		out.PutBundle(schema.FieldButtonSessionCommand, b.SessionCommand.ToBundle())
	}
	if b.PlayerCommand != NoPlayerCommand {
		out.PutInt(schema.FieldButtonPlayerCommand, int(b.PlayerCommand))
	}
	if b.DisplayName != "" {
		out.PutString(schema.FieldButtonDisplayName, b.DisplayName)
	}
	if b.Extras != nil && !b.Extras.IsEmpty() {
		out.PutBundle(schema.FieldButtonExtras, b.Extras)
	}
	out.PutBool(schema.FieldButtonEnabled, b.Enabled)
	if b.IconURI != "" {
		out.PutString(schema.FieldButtonIconURI, b.IconURI)
	}
	if b.Icon != 0 {
		out.PutInt(schema.FieldButtonIcon, b.Icon)
	}
	if len(b.Slots) > 0 {
		slots := make([]int64, len(b.Slots))
		for i, s := range b.Slots {
			slots[i] = int64(s)
		}
		out.PutInts(schema.FieldButtonSlots, slots)
	}
	return out
}

// ButtonFromBundle decodes a button written by a session at
// sessionInterfaceVersion.
func ButtonFromBundle(b *bundle.Bundle, sessionInterfaceVersion int) (Button, error) {
	reg := schema.CommandButton
	if err := reg.Validate(b); err != nil {
		return Button{}, err
	}
	shape := buttonShapeFor(sessionInterfaceVersion)
	var out Button

	if nested, ok, _ := b.Nested(schema.FieldButtonSessionCommand); ok {
		sc, err := SessionCommandFromBundle(nested)
		if err != nil {
			return Button{}, reg.Malformed(schema.FieldButtonSessionCommand, err)
		}
		out.SessionCommand = &sc
	}
	cmd, _ := b.Int(schema.FieldButtonPlayerCommand, int(NoPlayerCommand))
	out.PlayerCommand = player.Command(cmd)
	out.DisplayName, _ = b.Text(schema.FieldButtonDisplayName, "")
	out.Enabled, _ = b.Bool(schema.FieldButtonEnabled, shape.enabledWhenAbsent)
	out.IconURI, _ = b.Text(schema.FieldButtonIconURI, "")
	out.Icon, _ = b.Int(schema.FieldButtonIcon, 0)
	if extras, ok, _ := b.Nested(schema.FieldButtonExtras); ok {
		out.Extras = extras
	} else {
		out.Extras = bundle.New()
	}
	slots, ok, _ := b.Ints(schema.FieldButtonSlots)
	if !ok || len(slots) == 0 {
		out.Slots = []Slot{SlotOverflow}
		return out, nil
	}
	out.Slots = make([]Slot, len(slots))
	for i, s := range slots {
		out.Slots[i] = Slot(s)
	}
	return out, nil
}

// ButtonsToBundles encodes a button list in order.
func ButtonsToBundles(buttons []Button) []*bundle.Bundle {
	out := make([]*bundle.Bundle, len(buttons))
	for i, b := range buttons {
		out[i] = b.ToBundle()
	}
	return out
}

// ButtonsFromBundles decodes a button list in order. The first failing
// element fails the whole list.
func ButtonsFromBundles(items []*bundle.Bundle, sessionInterfaceVersion int) ([]Button, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]Button, len(items))
	for i, item := range items {
		btn, err := ButtonFromBundle(item, sessionInterfaceVersion)
		if err != nil {
			return nil, err
		}
		out[i] = btn
	}
	return out, nil
}
