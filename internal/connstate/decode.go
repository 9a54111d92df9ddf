package connstate

import (
	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/command"
	"github.com/danmuck/connstate/internal/player"
	"github.com/danmuck/connstate/internal/protocol/schema"
)

// FromDelivery returns the state carried by d. A local delivery yields the
// sender's instance untouched; a remote one is decoded with FromBundle.
func FromDelivery(d Delivery) (*ConnectionState, error) {
	if s, ok := d.Unwrap(); ok {
		return s, nil
	}
	return FromBundle(d.Bundle())
}

// FromBundle rebuilds a ConnectionState from a bundle written by
// ToBundleForRemoteProcess. Absent values take their defaults; only a missing
// session handle or a malformed value fails. On failure no state is returned.
func FromBundle(b *bundle.Bundle) (*ConnectionState, error) {
	reg := schema.ConnectionState
	if err := reg.Validate(b); err != nil {
		return nil, err
	}

	var (
		p   Params
		err error
	)
	p.SessionInterfaceVersion, _ = b.Int(schema.FieldSessionInterfaceVersion, 0)
	p.LibraryVersion, _ = b.Int(schema.FieldLibraryVersion, 0)
	p.SessionHandle, _, _ = b.Handle(schema.FieldSessionHandle)
	if p.SessionHandle == "" {
		return nil, reg.Missing(schema.FieldSessionHandle)
	}
	p.ActivityHandle, _, _ = b.Handle(schema.FieldActivityHandle)
	p.PlatformToken, _, _ = b.Token(schema.FieldPlatformToken)

	version := p.SessionInterfaceVersion
	if p.CustomLayout, err = decodeButtons(b, schema.FieldCustomLayout, version); err != nil {
		return nil, err
	}
	if p.MediaButtonPreferences, err = decodeButtons(b, schema.FieldMediaButtonPreferences, version); err != nil {
		return nil, err
	}
	if p.CommandButtonsForMediaItems, err = decodeButtons(b, schema.FieldCommandButtonsForMediaItems, version); err != nil {
		return nil, err
	}

	p.SessionCommands = command.EmptySessionCommands
	if nested, ok, _ := b.Nested(schema.FieldSessionCommands); ok {
		if p.SessionCommands, err = command.SessionCommandsFromBundle(nested); err != nil {
			return nil, reg.Malformed(schema.FieldSessionCommands, err)
		}
	}
	if p.PlayerCommandsFromPlayer, err = decodeCommands(b, schema.FieldPlayerCommandsFromPlayer); err != nil {
		return nil, err
	}
	if p.PlayerCommandsFromSession, err = decodeCommands(b, schema.FieldPlayerCommandsFromSession); err != nil {
		return nil, err
	}

	p.TokenExtras = bundle.New()
	if nested, ok, _ := b.Nested(schema.FieldTokenExtras); ok {
		p.TokenExtras = nested
	}
	p.SessionExtras = bundle.New()
	if nested, ok, _ := b.Nested(schema.FieldSessionExtras); ok {
		p.SessionExtras = nested
	}

	p.PlayerInfo = player.DefaultInfo()
	if nested, ok, _ := b.Nested(schema.FieldPlayerInfo); ok {
		if p.PlayerInfo, err = player.InfoFromBundle(nested); err != nil {
			return nil, reg.Malformed(schema.FieldPlayerInfo, err)
		}
	}
	return newState(p), nil
}

func decodeButtons(b *bundle.Bundle, tag bundle.Key, sessionInterfaceVersion int) ([]command.Button, error) {
	items, _, _ := b.List(tag)
	buttons, err := command.ButtonsFromBundles(items, sessionInterfaceVersion)
	if err != nil {
		return nil, schema.ConnectionState.Malformed(tag, err)
	}
	return buttons, nil
}

func decodeCommands(b *bundle.Bundle, tag bundle.Key) (player.Commands, error) {
	nested, ok, _ := b.Nested(tag)
	if !ok {
		return player.EmptyCommands, nil
	}
	cmds, err := player.CommandsFromBundle(nested)
	if err != nil {
		return player.Commands{}, schema.ConnectionState.Malformed(tag, err)
	}
	return cmds, nil
}
