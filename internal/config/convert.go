package config

import (
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/danmuck/connstate/internal/auth"
	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/command"
	"github.com/danmuck/connstate/internal/mediasession"
	"github.com/danmuck/connstate/internal/player"
	"github.com/danmuck/connstate/internal/protocol/frame"
	"github.com/danmuck/connstate/internal/protocol/wire"
	"github.com/danmuck/connstate/internal/transport"
)

var slotNames = map[string]command.Slot{
	"central":           command.SlotCentral,
	"back":              command.SlotBack,
	"forward":           command.SlotForward,
	"back_secondary":    command.SlotBackSecondary,
	"forward_secondary": command.SlotForwardSecondary,
	"overflow":          command.SlotOverflow,
}

var stateNames = map[string]player.PlaybackState{
	"idle":      player.StateIdle,
	"buffering": player.StateBuffering,
	"ready":     player.StateReady,
	"ended":     player.StateEnded,
}

func parseSlot(raw string) (command.Slot, error) {
	slot, ok := slotNames[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("unknown slot %q", raw)
	}
	return slot, nil
}

func parseState(raw string) (player.PlaybackState, error) {
	state, ok := stateNames[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("unknown player state %q", raw)
	}
	return state, nil
}

// WireOptions returns the framing options for cfg.
func (cfg SessionConfig) WireOptions() (wire.Options, error) {
	format, err := wire.ParseFormat(cfg.Wire.Format)
	if err != nil {
		return wire.Options{}, err
	}
	return wire.Options{
		Format:        format,
		CompressAbove: cfg.Wire.CompressAbove,
		Limits: frame.Limits{
			MaxAuthBytes:    cfg.Wire.MaxAuthBytes,
			MaxPayloadBytes: cfg.Wire.MaxPayloadBytes,
		},
	}, nil
}

func (cfg SessionConfig) transportTLS() transport.TLSConfig {
	return transport.TLSConfig{
		Enabled:  cfg.TLS.Enabled,
		Mutual:   cfg.TLS.Mutual,
		CertFile: strings.TrimSpace(cfg.TLS.CertFile),
		KeyFile:  strings.TrimSpace(cfg.TLS.KeyFile),
		CAFile:   strings.TrimSpace(cfg.TLS.CAFile),
	}
}

// ServerTLS returns the listener TLS config, or nil when TLS is off.
func (cfg SessionConfig) ServerTLS() (*tls.Config, error) {
	return cfg.transportTLS().ServerConfig()
}

// Authenticator returns the request check, or nil when auth_token is unset.
func (cfg SessionConfig) Authenticator() auth.Validator {
	return auth.Optional(cfg.AuthToken)
}

// NewSession builds the session and static player cfg describes.
func (cfg SessionConfig) NewSession() (*mediasession.Session, *mediasession.StaticPlayer, error) {
	msCfg, err := cfg.Offer()
	if err != nil {
		return nil, nil, err
	}
	info, err := cfg.PlayerInfo()
	if err != nil {
		return nil, nil, err
	}
	p := mediasession.NewStaticPlayer(commandsOrAll(cfg.Commands.Supported), info)
	return mediasession.New(cfg.ID, msCfg, p), p, nil
}

// Offer converts the file form into the session's offer.
func (cfg SessionConfig) Offer() (mediasession.Config, error) {
	out := mediasession.DefaultConfig()
	out.LibraryVersion = cfg.LibraryVersion
	out.InterfaceVersion = cfg.InterfaceVersion
	out.ActivityHandle = bundle.Handle(cfg.ActivityHandle)
	if cfg.PlatformToken != "" {
		out.PlatformToken = bundle.Token(cfg.PlatformToken)
	}
	out.AllowedPackages = cfg.AllowedPackages
	out.PlayerCommands = commandsOrAll(cfg.Commands.Granted)

	cmds := make([]command.SessionCommand, 0, len(cfg.Commands.Session)+len(cfg.Commands.Custom))
	for _, code := range cfg.Commands.Session {
		cmds = append(cmds, command.NewPredefined(command.Code(code)))
	}
	for _, action := range cfg.Commands.Custom {
		cmds = append(cmds, command.NewCustom(action, nil))
	}
	out.SessionCommands = command.NewSessionCommands(cmds...)

	var err error
	if out.CustomLayout, err = buttons(cfg.Buttons.CustomLayout); err != nil {
		return mediasession.Config{}, err
	}
	if out.MediaButtonPreferences, err = buttons(cfg.Buttons.MediaButtonPreferences); err != nil {
		return mediasession.Config{}, err
	}
	if out.CommandButtonsForMediaItems, err = buttons(cfg.Buttons.ForMediaItems); err != nil {
		return mediasession.Config{}, err
	}

	extras := bundle.New()
	for raw, v := range cfg.Extras {
		key, err := parseKey(raw)
		if err != nil {
			return mediasession.Config{}, err
		}
		extras.PutString(bundle.Key(key), v)
	}
	out.SessionExtras = extras
	return out, nil
}

// PlayerInfo returns the initial player snapshot.
func (cfg SessionConfig) PlayerInfo() (player.Info, error) {
	state, err := parseState(cfg.Player.State)
	if err != nil {
		return player.Info{}, err
	}
	info := player.DefaultInfo()
	info.PlaybackState = state
	info.PlayWhenReady = cfg.Player.PlayWhenReady
	info.IsPlaying = state == player.StateReady && cfg.Player.PlayWhenReady
	info.VolumePercent = cfg.Player.VolumePercent
	info.PlaylistTitle = cfg.Player.PlaylistTitle
	item := player.MediaItem{
		MediaID:    cfg.Player.MediaID,
		Title:      cfg.Player.Title,
		Artist:     cfg.Player.Artist,
		DurationMs: cfg.Player.DurationMs,
	}
	if !item.IsZero() {
		info.CurrentMediaItem = item
		info.Timeline = []player.MediaItem{item}
		info.DurationMs = item.DurationMs
		info.PositionMs = cfg.Player.PositionMs
	}
	return info, nil
}

func buttons(in []ButtonConfig) ([]command.Button, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]command.Button, len(in))
	for i, bc := range in {
		b := command.Button{
			PlayerCommand: player.Command(bc.PlayerCommand),
			DisplayName:   bc.DisplayName,
			Icon:          bc.Icon,
			IconURI:       bc.IconURI,
			Enabled:       !bc.Disabled,
		}
		switch {
		case bc.CustomAction != "":
			sc := command.NewCustom(bc.CustomAction, nil)
			b.SessionCommand = &sc
		case bc.SessionCode != 0:
			sc := command.NewPredefined(command.Code(bc.SessionCode))
			b.SessionCommand = &sc
		}
		for _, raw := range bc.Slots {
			slot, err := parseSlot(raw)
			if err != nil {
				return nil, fmt.Errorf("button %q: %w", bc.DisplayName, err)
			}
			b.Slots = append(b.Slots, slot)
		}
		if len(b.Slots) == 0 {
			b.Slots = []command.Slot{command.SlotOverflow}
		}
		out[i] = b
	}
	return out, nil
}

func commandsOrAll(codes []int) player.Commands {
	if len(codes) == 0 {
		return player.AllCommands()
	}
	cmds := make([]player.Command, len(codes))
	for i, c := range codes {
		cmds[i] = player.Command(c)
	}
	return player.NewCommands(cmds...)
}
