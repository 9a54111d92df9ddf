package schema

import "github.com/danmuck/connstate/internal/bundle"

// Connection state tags. Assigned once, never reused.
const (
	FieldLibraryVersion              bundle.Key = 0
	FieldSessionHandle               bundle.Key = 1
	FieldActivityHandle              bundle.Key = 2
	FieldSessionCommands             bundle.Key = 3
	FieldPlayerCommandsFromSession   bundle.Key = 4
	FieldPlayerCommandsFromPlayer    bundle.Key = 5
	FieldTokenExtras                 bundle.Key = 6
	FieldPlayerInfo                  bundle.Key = 7
	FieldSessionInterfaceVersion     bundle.Key = 8
	FieldCustomLayout                bundle.Key = 9
	FieldInProcessShortcut           bundle.Key = 10
	FieldSessionExtras               bundle.Key = 11
	FieldPlatformToken               bundle.Key = 12
	FieldCommandButtonsForMediaItems bundle.Key = 13
	FieldMediaButtonPreferences      bundle.Key = 14

	connectionStateNext bundle.Key = 15
)

var ConnectionState = Registry{
	Record: "connection_state",
	Next:   connectionStateNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldLibraryVersion:              {Name: "library_version", Kind: bundle.KindInt},
		FieldSessionHandle:               {Name: "session_handle", Kind: bundle.KindHandle, Required: true},
		FieldActivityHandle:              {Name: "activity_handle", Kind: bundle.KindHandle},
		FieldSessionCommands:             {Name: "session_commands", Kind: bundle.KindBundle},
		FieldPlayerCommandsFromSession:   {Name: "player_commands_from_session", Kind: bundle.KindBundle},
		FieldPlayerCommandsFromPlayer:    {Name: "player_commands_from_player", Kind: bundle.KindBundle},
		FieldTokenExtras:                 {Name: "token_extras", Kind: bundle.KindBundle},
		FieldPlayerInfo:                  {Name: "player_info", Kind: bundle.KindBundle},
		FieldSessionInterfaceVersion:     {Name: "session_interface_version", Kind: bundle.KindInt},
		FieldCustomLayout:                {Name: "custom_layout", Kind: bundle.KindBundleList},
		FieldInProcessShortcut:           {Name: "in_process_shortcut", Local: true},
		FieldSessionExtras:               {Name: "session_extras", Kind: bundle.KindBundle},
		FieldPlatformToken:               {Name: "platform_token", Kind: bundle.KindToken},
		FieldCommandButtonsForMediaItems: {Name: "command_buttons_for_media_items", Kind: bundle.KindBundleList},
		FieldMediaButtonPreferences:      {Name: "media_button_preferences", Kind: bundle.KindBundleList},
	},
}

// Connection request tags.
const (
	FieldRequestLibraryVersion             bundle.Key = 0
	FieldRequestPackageName                bundle.Key = 1
	FieldRequestPID                        bundle.Key = 2
	FieldRequestConnectionHints            bundle.Key = 3
	FieldRequestControllerInterfaceVersion bundle.Key = 4
	FieldRequestMaxCommandsForMediaItems   bundle.Key = 5

	connectionRequestNext bundle.Key = 6
)

var ConnectionRequest = Registry{
	Record: "connection_request",
	Next:   connectionRequestNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldRequestLibraryVersion:             {Name: "library_version", Kind: bundle.KindInt},
		FieldRequestPackageName:                {Name: "package_name", Kind: bundle.KindString, Required: true},
		FieldRequestPID:                        {Name: "pid", Kind: bundle.KindInt},
		FieldRequestConnectionHints:            {Name: "connection_hints", Kind: bundle.KindBundle},
		FieldRequestControllerInterfaceVersion: {Name: "controller_interface_version", Kind: bundle.KindInt},
		FieldRequestMaxCommandsForMediaItems:   {Name: "max_commands_for_media_items", Kind: bundle.KindInt},
	},
}

// Player command set tags.
const (
	FieldPlayerCommandsList bundle.Key = 0

	playerCommandsNext bundle.Key = 1
)

var PlayerCommands = Registry{
	Record: "player_commands",
	Next:   playerCommandsNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldPlayerCommandsList: {Name: "commands", Kind: bundle.KindIntList},
	},
}

// Player info tags.
const (
	FieldInfoPlaybackState      bundle.Key = 0
	FieldInfoPlayWhenReady      bundle.Key = 1
	FieldInfoIsPlaying          bundle.Key = 2
	FieldInfoRepeatMode         bundle.Key = 3
	FieldInfoShuffleModeEnabled bundle.Key = 4
	FieldInfoSpeedPermille      bundle.Key = 5
	FieldInfoVolumePercent      bundle.Key = 6
	FieldInfoCurrentMediaItem   bundle.Key = 7
	FieldInfoPositionMs         bundle.Key = 8
	FieldInfoBufferedPositionMs bundle.Key = 9
	FieldInfoDurationMs         bundle.Key = 10
	FieldInfoTimeline           bundle.Key = 11
	FieldInfoCurrentIndex       bundle.Key = 12
	FieldInfoTracks             bundle.Key = 13
	FieldInfoPlaylistTitle      bundle.Key = 14

	playerInfoNext bundle.Key = 15
)

var PlayerInfo = Registry{
	Record: "player_info",
	Next:   playerInfoNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldInfoPlaybackState:      {Name: "playback_state", Kind: bundle.KindInt},
		FieldInfoPlayWhenReady:      {Name: "play_when_ready", Kind: bundle.KindBool},
		FieldInfoIsPlaying:          {Name: "is_playing", Kind: bundle.KindBool},
		FieldInfoRepeatMode:         {Name: "repeat_mode", Kind: bundle.KindInt},
		FieldInfoShuffleModeEnabled: {Name: "shuffle_mode_enabled", Kind: bundle.KindBool},
		FieldInfoSpeedPermille:      {Name: "speed_permille", Kind: bundle.KindInt},
		FieldInfoVolumePercent:      {Name: "volume_percent", Kind: bundle.KindInt},
		FieldInfoCurrentMediaItem:   {Name: "current_media_item", Kind: bundle.KindBundle},
		FieldInfoPositionMs:         {Name: "position_ms", Kind: bundle.KindInt},
		FieldInfoBufferedPositionMs: {Name: "buffered_position_ms", Kind: bundle.KindInt},
		FieldInfoDurationMs:         {Name: "duration_ms", Kind: bundle.KindInt},
		FieldInfoTimeline:           {Name: "timeline", Kind: bundle.KindBundleList},
		FieldInfoCurrentIndex:       {Name: "current_index", Kind: bundle.KindInt},
		FieldInfoTracks:             {Name: "tracks", Kind: bundle.KindBundleList},
		FieldInfoPlaylistTitle:      {Name: "playlist_title", Kind: bundle.KindString},
	},
}

// Media item tags.
const (
	FieldMediaItemID         bundle.Key = 0
	FieldMediaItemTitle      bundle.Key = 1
	FieldMediaItemArtist     bundle.Key = 2
	FieldMediaItemDurationMs bundle.Key = 3

	mediaItemNext bundle.Key = 4
)

var MediaItem = Registry{
	Record: "media_item",
	Next:   mediaItemNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldMediaItemID:         {Name: "media_id", Kind: bundle.KindString},
		FieldMediaItemTitle:      {Name: "title", Kind: bundle.KindString},
		FieldMediaItemArtist:     {Name: "artist", Kind: bundle.KindString},
		FieldMediaItemDurationMs: {Name: "duration_ms", Kind: bundle.KindInt},
	},
}

// Track tags.
const (
	FieldTrackID       bundle.Key = 0
	FieldTrackType     bundle.Key = 1
	FieldTrackSelected bundle.Key = 2

	trackNext bundle.Key = 3
)

var Track = Registry{
	Record: "track",
	Next:   trackNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldTrackID:       {Name: "id", Kind: bundle.KindString, Required: true},
		FieldTrackType:     {Name: "type", Kind: bundle.KindInt},
		FieldTrackSelected: {Name: "selected", Kind: bundle.KindBool},
	},
}

// Session command set tags.
const (
	FieldSessionCommandsList bundle.Key = 0

	sessionCommandsNext bundle.Key = 1
)

var SessionCommands = Registry{
	Record: "session_commands",
	Next:   sessionCommandsNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldSessionCommandsList: {Name: "commands", Kind: bundle.KindBundleList},
	},
}

// Session command tags.
const (
	FieldSessionCommandCode         bundle.Key = 0
	FieldSessionCommandCustomAction bundle.Key = 1
	FieldSessionCommandCustomExtras bundle.Key = 2

	sessionCommandNext bundle.Key = 3
)

var SessionCommand = Registry{
	Record: "session_command",
	Next:   sessionCommandNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldSessionCommandCode:         {Name: "command_code", Kind: bundle.KindInt},
		FieldSessionCommandCustomAction: {Name: "custom_action", Kind: bundle.KindString},
		FieldSessionCommandCustomExtras: {Name: "custom_extras", Kind: bundle.KindBundle},
	},
}

// Command button tags.
const (
	FieldButtonSessionCommand bundle.Key = 0
	FieldButtonPlayerCommand  bundle.Key = 1
	FieldButtonIconResID      bundle.Key = 2
	FieldButtonDisplayName    bundle.Key = 3
	FieldButtonExtras         bundle.Key = 4
	FieldButtonEnabled        bundle.Key = 5
	FieldButtonIconURI        bundle.Key = 6
	FieldButtonIcon           bundle.Key = 7
	FieldButtonSlots          bundle.Key = 8

	commandButtonNext bundle.Key = 9
)

var CommandButton = Registry{
	Record: "command_button",
	Next:   commandButtonNext,
	Fields: map[bundle.Key]FieldSpec{
		FieldButtonSessionCommand: {Name: "session_command", Kind: bundle.KindBundle},
		FieldButtonPlayerCommand:  {Name: "player_command", Kind: bundle.KindInt},
		FieldButtonIconResID:      {Name: "icon_res_id", Kind: bundle.KindInt, Retired: true},
		FieldButtonDisplayName:    {Name: "display_name", Kind: bundle.KindString},
		FieldButtonExtras:         {Name: "extras", Kind: bundle.KindBundle},
		FieldButtonEnabled:        {Name: "enabled", Kind: bundle.KindBool},
		FieldButtonIconURI:        {Name: "icon_uri", Kind: bundle.KindString},
		FieldButtonIcon:           {Name: "icon", Kind: bundle.KindInt},
		FieldButtonSlots:          {Name: "slots", Kind: bundle.KindIntList},
	},
}
