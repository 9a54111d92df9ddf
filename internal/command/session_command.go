// Package command models the session-level commands a controller may send and
// the buttons a session offers to trigger them, including the downgrade from
// slot-aware preferences to the legacy flat layout.
package command

import (
	"slices"
	"strings"

	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/protocol/schema"
)

// Code identifies a predefined session command. CodeCustom marks a command
// identified by its custom action string instead.
type Code int

const (
	CodeCustom          Code = 0
	CodeSetRating       Code = 40010
	CodeLibraryGetRoot  Code = 50000
	CodeLibraryChildren Code = 50003
	CodeLibraryGetItem  Code = 50004
	CodeLibrarySearch   Code = 50005
)

// SessionCommand is either a predefined code or a custom action with extras.
type SessionCommand struct {
	Code         Code
	CustomAction string
	CustomExtras *bundle.Bundle
}

// NewCustom returns a custom command. extras is copied.
func NewCustom(action string, extras *bundle.Bundle) SessionCommand {
	return SessionCommand{Code: CodeCustom, CustomAction: action, CustomExtras: extras.Clone()}
}

func NewPredefined(code Code) SessionCommand {
	return SessionCommand{Code: code}
}

func (c SessionCommand) IsCustom() bool {
	return c.Code == CodeCustom
}

// Equal compares identity only: code, and action for custom commands. Extras
// do not take part, matching how sessions look commands up.
func (c SessionCommand) Equal(o SessionCommand) bool {
	return c.Code == o.Code && c.CustomAction == o.CustomAction
}

func (c SessionCommand) compare(o SessionCommand) int {
	if c.Code != o.Code {
		if c.Code < o.Code {
			return -1
		}
		return 1
	}
	return strings.Compare(c.CustomAction, o.CustomAction)
}

func (c SessionCommand) clone() SessionCommand {
	out := c
	if c.CustomExtras != nil {
		out.CustomExtras = c.CustomExtras.Clone()
	}
	return out
}

func (c SessionCommand) ToBundle() *bundle.Bundle {
	b := bundle.New()
	b.PutInt(schema.FieldSessionCommandCode, int(c.Code))
	if c.IsCustom() {
		b.PutString(schema.FieldSessionCommandCustomAction, c.CustomAction)
		b.PutBundle(schema.FieldSessionCommandCustomExtras, c.CustomExtras)
	}
	return b
}

func SessionCommandFromBundle(b *bundle.Bundle) (SessionCommand, error) {
	if err := schema.SessionCommand.Validate(b); err != nil {
		return SessionCommand{}, err
	}
	code, _ := b.Int(schema.FieldSessionCommandCode, int(CodeCustom))
	out := SessionCommand{Code: Code(code)}
	if out.IsCustom() {
		out.CustomAction, _ = b.Text(schema.FieldSessionCommandCustomAction, "")
		if extras, ok, _ := b.Nested(schema.FieldSessionCommandCustomExtras); ok {
			out.CustomExtras = extras
		} else {
			out.CustomExtras = bundle.New()
		}
	}
	return out, nil
}

// SessionCommands is an immutable set of session commands, kept sorted by
// code then action.
type SessionCommands struct {
	list []SessionCommand
}

// EmptySessionCommands is the set with no commands.
var EmptySessionCommands = SessionCommands{}

// NewSessionCommands builds a set. Of duplicate commands the first is kept.
func NewSessionCommands(cmds ...SessionCommand) SessionCommands {
	list := make([]SessionCommand, 0, len(cmds))
	for _, c := range cmds {
		list = append(list, c.clone())
	}
	slices.SortStableFunc(list, SessionCommand.compare)
	list = slices.CompactFunc(list, SessionCommand.Equal)
	return SessionCommands{list: list}
}

func (s SessionCommands) Len() int {
	return len(s.list)
}

func (s SessionCommands) Contains(c SessionCommand) bool {
	_, ok := slices.BinarySearchFunc(s.list, c, SessionCommand.compare)
	return ok
}

// ContainsCode reports whether the predefined code is in s.
func (s SessionCommands) ContainsCode(code Code) bool {
	return s.Contains(NewPredefined(code))
}

// List returns copies of the commands in set order.
func (s SessionCommands) List() []SessionCommand {
	out := make([]SessionCommand, len(s.list))
	for i, c := range s.list {
		out[i] = c.clone()
	}
	return out
}

// Equal compares membership.
func (s SessionCommands) Equal(o SessionCommands) bool {
	return slices.EqualFunc(s.list, o.list, SessionCommand.Equal)
}

func (s SessionCommands) Union(o SessionCommands) SessionCommands {
	return NewSessionCommands(append(s.List(), o.list...)...)
}

func (s SessionCommands) ToBundle() *bundle.Bundle {
	items := make([]*bundle.Bundle, len(s.list))
	for i, c := range s.list {
		items[i] = c.ToBundle()
	}
	b := bundle.New()
	b.PutList(schema.FieldSessionCommandsList, items)
	return b
}

func SessionCommandsFromBundle(b *bundle.Bundle) (SessionCommands, error) {
	reg := schema.SessionCommands
	if err := reg.Validate(b); err != nil {
		return SessionCommands{}, err
	}
	items, _, _ := b.List(schema.FieldSessionCommandsList)
	cmds := make([]SessionCommand, len(items))
	for i, item := range items {
		c, err := SessionCommandFromBundle(item)
		if err != nil {
			return SessionCommands{}, reg.Malformed(schema.FieldSessionCommandsList, err)
		}
		cmds[i] = c
	}
	return NewSessionCommands(cmds...), nil
}
