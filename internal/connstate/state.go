// Package connstate builds, encodes and decodes the connection state a media
// session hands to a controller when it accepts the controller's connection
// request.
//
// A ConnectionState is immutable. Same-process controllers receive the
// instance itself through a Local delivery; everyone else receives a bundle
// encoded for their interface version and rebuilds a copy with FromBundle.
package connstate

import (
	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/command"
	"github.com/danmuck/connstate/internal/player"
	"github.com/danmuck/connstate/internal/protocol/schema"
)

// MediaButtonPreferencesMinVersion is the first controller interface version
// that understands media button preferences. Older controllers receive them
// flattened into the custom layout.
const MediaButtonPreferencesMinVersion = 7

// ConnectionState is the envelope sent to a newly connected controller.
// Fields are unexported so the value cannot change after New; accessors
// return copies.
type ConnectionState struct {
	libraryVersion              int
	sessionInterfaceVersion     int
	sessionHandle               bundle.Handle
	activityHandle              bundle.Handle
	customLayout                []command.Button
	mediaButtonPreferences      []command.Button
	commandButtonsForMediaItems []command.Button
	sessionCommands             command.SessionCommands
	playerCommandsFromSession   player.Commands
	playerCommandsFromPlayer    player.Commands
	tokenExtras                 *bundle.Bundle
	sessionExtras               *bundle.Bundle
	playerInfo                  player.Info
	platformToken               bundle.Token
}

// Params holds the inputs to New. Empty handles and a nil token mean absent.
type Params struct {
	LibraryVersion              int
	SessionInterfaceVersion     int
	SessionHandle               bundle.Handle
	ActivityHandle              bundle.Handle
	CustomLayout                []command.Button
	MediaButtonPreferences      []command.Button
	CommandButtonsForMediaItems []command.Button
	SessionCommands             command.SessionCommands
	PlayerCommandsFromSession   player.Commands
	PlayerCommandsFromPlayer    player.Commands
	TokenExtras                 *bundle.Bundle
	SessionExtras               *bundle.Bundle
	PlayerInfo                  player.Info
	PlatformToken               bundle.Token
}

// New builds a ConnectionState from deep copies of p. The session handle is
// required.
func New(p Params) (*ConnectionState, error) {
	if p.SessionHandle == "" {
		return nil, schema.ConnectionState.Missing(schema.FieldSessionHandle)
	}
	return newState(p), nil
}

func newState(p Params) *ConnectionState {
	s := &ConnectionState{
		libraryVersion:              p.LibraryVersion,
		sessionInterfaceVersion:     p.SessionInterfaceVersion,
		sessionHandle:               p.SessionHandle,
		activityHandle:              p.ActivityHandle,
		customLayout:                command.CloneButtons(p.CustomLayout),
		mediaButtonPreferences:      command.CloneButtons(p.MediaButtonPreferences),
		commandButtonsForMediaItems: command.CloneButtons(p.CommandButtonsForMediaItems),
		sessionCommands:             p.SessionCommands,
		playerCommandsFromSession:   p.PlayerCommandsFromSession,
		playerCommandsFromPlayer:    p.PlayerCommandsFromPlayer,
		tokenExtras:                 p.TokenExtras.Clone(),
		sessionExtras:               p.SessionExtras.Clone(),
		playerInfo:                  p.PlayerInfo.Clone(),
	}
	if len(p.PlatformToken) > 0 {
		s.platformToken = append(bundle.Token(nil), p.PlatformToken...)
	}
	return s
}

// Params returns a deep copy of the values s was built from.
func (s *ConnectionState) Params() Params {
	p := Params{
		LibraryVersion:              s.libraryVersion,
		SessionInterfaceVersion:     s.sessionInterfaceVersion,
		SessionHandle:               s.sessionHandle,
		ActivityHandle:              s.activityHandle,
		CustomLayout:                command.CloneButtons(s.customLayout),
		MediaButtonPreferences:      command.CloneButtons(s.mediaButtonPreferences),
		CommandButtonsForMediaItems: command.CloneButtons(s.commandButtonsForMediaItems),
		SessionCommands:             s.sessionCommands,
		PlayerCommandsFromSession:   s.playerCommandsFromSession,
		PlayerCommandsFromPlayer:    s.playerCommandsFromPlayer,
		TokenExtras:                 s.tokenExtras.Clone(),
		SessionExtras:               s.sessionExtras.Clone(),
		PlayerInfo:                  s.playerInfo.Clone(),
	}
	if len(s.platformToken) > 0 {
		p.PlatformToken = append(bundle.Token(nil), s.platformToken...)
	}
	return p
}

func (s *ConnectionState) LibraryVersion() int          { return s.libraryVersion }
func (s *ConnectionState) SessionInterfaceVersion() int { return s.sessionInterfaceVersion }
func (s *ConnectionState) SessionHandle() bundle.Handle { return s.sessionHandle }

// ActivityHandle reports the activity handle and whether one is present.
func (s *ConnectionState) ActivityHandle() (bundle.Handle, bool) {
	return s.activityHandle, s.activityHandle != ""
}

func (s *ConnectionState) CustomLayout() []command.Button {
	return command.CloneButtons(s.customLayout)
}

func (s *ConnectionState) MediaButtonPreferences() []command.Button {
	return command.CloneButtons(s.mediaButtonPreferences)
}

func (s *ConnectionState) CommandButtonsForMediaItems() []command.Button {
	return command.CloneButtons(s.commandButtonsForMediaItems)
}

func (s *ConnectionState) SessionCommands() command.SessionCommands { return s.sessionCommands }

func (s *ConnectionState) PlayerCommandsFromSession() player.Commands {
	return s.playerCommandsFromSession
}

func (s *ConnectionState) PlayerCommandsFromPlayer() player.Commands {
	return s.playerCommandsFromPlayer
}

// EffectivePlayerCommands is what the controller may actually do: the
// commands granted by the session and supported by the player.
func (s *ConnectionState) EffectivePlayerCommands() player.Commands {
	return player.Intersect(s.playerCommandsFromSession, s.playerCommandsFromPlayer)
}

func (s *ConnectionState) TokenExtras() *bundle.Bundle   { return s.tokenExtras.Clone() }
func (s *ConnectionState) SessionExtras() *bundle.Bundle { return s.sessionExtras.Clone() }

// PlayerInfo returns the unfiltered snapshot held by the session.
func (s *ConnectionState) PlayerInfo() player.Info { return s.playerInfo.Clone() }

// PlatformToken reports the platform token and whether one is present.
func (s *ConnectionState) PlatformToken() (bundle.Token, bool) {
	if len(s.platformToken) == 0 {
		return nil, false
	}
	return append(bundle.Token(nil), s.platformToken...), true
}

// Equal compares every field by value.
func (s *ConnectionState) Equal(o *ConnectionState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.libraryVersion == o.libraryVersion &&
		s.sessionInterfaceVersion == o.sessionInterfaceVersion &&
		s.sessionHandle == o.sessionHandle &&
		s.activityHandle == o.activityHandle &&
		command.ButtonsEqual(s.customLayout, o.customLayout) &&
		command.ButtonsEqual(s.mediaButtonPreferences, o.mediaButtonPreferences) &&
		command.ButtonsEqual(s.commandButtonsForMediaItems, o.commandButtonsForMediaItems) &&
		s.sessionCommands.Equal(o.sessionCommands) &&
		s.playerCommandsFromSession.Equal(o.playerCommandsFromSession) &&
		s.playerCommandsFromPlayer.Equal(o.playerCommandsFromPlayer) &&
		s.tokenExtras.Equal(o.tokenExtras) &&
		s.sessionExtras.Equal(o.sessionExtras) &&
		s.playerInfo.Equal(o.playerInfo) &&
		string(s.platformToken) == string(o.platformToken)
}
