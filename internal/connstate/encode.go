package connstate

import (
	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/command"
	"github.com/danmuck/connstate/internal/protocol/schema"
)

// Downgrades reports whether encoding for recipientInterfaceVersion folds
// media button preferences into the custom layout.
func (s *ConnectionState) Downgrades(recipientInterfaceVersion int) bool {
	return len(s.mediaButtonPreferences) > 0 &&
		recipientInterfaceVersion < MediaButtonPreferencesMinVersion
}

// ToBundleForRemoteProcess encodes s for a controller in another process that
// speaks recipientInterfaceVersion. Empty button lists and absent optional
// values are omitted. Player info is filtered down to what the effective
// player commands allow the controller to read.
func (s *ConnectionState) ToBundleForRemoteProcess(recipientInterfaceVersion int) *bundle.Bundle {
	b := bundle.New()
	b.PutInt(schema.FieldLibraryVersion, s.libraryVersion)
	b.PutInt(schema.FieldSessionInterfaceVersion, s.sessionInterfaceVersion)
	b.PutHandle(schema.FieldSessionHandle, s.sessionHandle)
	b.PutBundle(schema.FieldSessionCommands, s.sessionCommands.ToBundle())
	b.PutBundle(schema.FieldPlayerCommandsFromSession, s.playerCommandsFromSession.ToBundle())
	b.PutBundle(schema.FieldPlayerCommandsFromPlayer, s.playerCommandsFromPlayer.ToBundle())
	b.PutBundle(schema.FieldTokenExtras, s.tokenExtras)
	b.PutBundle(schema.FieldSessionExtras, s.sessionExtras)

	if s.activityHandle != "" {
		b.PutHandle(schema.FieldActivityHandle, s.activityHandle)
	}
	if len(s.platformToken) > 0 {
		b.PutToken(schema.FieldPlatformToken, s.platformToken)
	}

	if len(s.customLayout) > 0 {
		b.PutList(schema.FieldCustomLayout, command.ButtonsToBundles(s.customLayout))
	}
	if len(s.mediaButtonPreferences) > 0 {
		if recipientInterfaceVersion >= MediaButtonPreferencesMinVersion {
			b.PutList(schema.FieldMediaButtonPreferences, command.ButtonsToBundles(s.mediaButtonPreferences))
		} else {
			// TODO: derive slot eligibility from the recipient's granted
			// player commands and session extras instead of allowing both.
			flat := command.FlattenPreferences(s.mediaButtonPreferences, true, true)
			b.PutList(schema.FieldCustomLayout, command.ButtonsToBundles(flat))
		}
	}
	if len(s.commandButtonsForMediaItems) > 0 {
		b.PutList(schema.FieldCommandButtonsForMediaItems, command.ButtonsToBundles(s.commandButtonsForMediaItems))
	}

	info := s.playerInfo.FilterByAvailableCommands(s.EffectivePlayerCommands(), false, false)
	b.PutBundle(schema.FieldPlayerInfo, info.ToBundleForRemoteProcess(recipientInterfaceVersion))
	return b
}
