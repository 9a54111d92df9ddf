// Package config loads the session configuration served by connstatectl.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/danmuck/connstate/internal/mediasession"
	"github.com/danmuck/connstate/internal/protocol/frame"
)

// SessionConfig mirrors the TOML file.
type SessionConfig struct {
	ID               string   `toml:"id"`
	Listen           string   `toml:"listen"`
	LibraryVersion   int      `toml:"library_version"`
	InterfaceVersion int      `toml:"interface_version"`
	ActivityHandle   string   `toml:"activity_handle"`
	PlatformToken    string   `toml:"platform_token"`
	AllowedPackages  []string `toml:"allowed_packages"`
	// AuthToken, when set, must ride in every request frame's auth section.
	AuthToken string `toml:"auth_token"`
	// CorsOrigins lists browser origins allowed to reach the HTTP surface.
	CorsOrigins []string `toml:"cors_origins"`

	Wire     WireConfig        `toml:"wire"`
	TLS      TLSConfig         `toml:"tls"`
	Commands CommandsConfig    `toml:"commands"`
	Buttons  ButtonsConfig     `toml:"buttons"`
	Player   PlayerConfig      `toml:"player"`
	Extras   map[string]string `toml:"session_extras"`
}

type WireConfig struct {
	Format          string `toml:"format"`
	CompressAbove   int    `toml:"compress_above"`
	MaxPayloadBytes uint64 `toml:"max_payload_bytes"`
	MaxAuthBytes    uint64 `toml:"max_auth_bytes"`
}

type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	Mutual   bool   `toml:"mutual"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	CAFile   string `toml:"ca_file"`
}

type CommandsConfig struct {
	// Session lists predefined session command codes.
	Session []int `toml:"session"`
	// Custom lists custom session command actions.
	Custom []string `toml:"custom"`
	// Granted lists player commands the session grants. Empty grants all.
	Granted []int `toml:"granted"`
	// Supported lists player commands the player supports. Empty means all.
	Supported []int `toml:"supported"`
}

type ButtonsConfig struct {
	CustomLayout           []ButtonConfig `toml:"custom_layout"`
	MediaButtonPreferences []ButtonConfig `toml:"media_button_preferences"`
	ForMediaItems          []ButtonConfig `toml:"for_media_items"`
}

type ButtonConfig struct {
	DisplayName   string   `toml:"display_name"`
	PlayerCommand int      `toml:"player_command"`
	CustomAction  string   `toml:"custom_action"`
	SessionCode   int      `toml:"session_code"`
	IconURI       string   `toml:"icon_uri"`
	Icon          int      `toml:"icon"`
	Disabled      bool     `toml:"disabled"`
	Slots         []string `toml:"slots"`
}

type PlayerConfig struct {
	State         string `toml:"state"`
	PlayWhenReady bool   `toml:"play_when_ready"`
	MediaID       string `toml:"media_id"`
	Title         string `toml:"title"`
	Artist        string `toml:"artist"`
	DurationMs    int64  `toml:"duration_ms"`
	PositionMs    int64  `toml:"position_ms"`
	VolumePercent int    `toml:"volume_percent"`
	PlaylistTitle string `toml:"playlist_title"`
}

type envOverrides struct {
	Listen           *string `env:"CONNSTATE_LISTEN"`
	InterfaceVersion *int    `env:"CONNSTATE_INTERFACE_VERSION"`
	WireFormat       *string `env:"CONNSTATE_WIRE_FORMAT"`
	CompressAbove    *int    `env:"CONNSTATE_COMPRESS_ABOVE"`
	AuthToken        *string `env:"CONNSTATE_AUTH_TOKEN"`
}

func Default() SessionConfig {
	limits := frame.DefaultLimits()
	return SessionConfig{
		ID:               "connstate.local",
		Listen:           "127.0.0.1:8790",
		LibraryVersion:   mediasession.LibraryVersion,
		InterfaceVersion: mediasession.InterfaceVersion,
		Wire: WireConfig{
			Format:          "tlv",
			CompressAbove:   4 * 1024,
			MaxPayloadBytes: limits.MaxPayloadBytes,
			MaxAuthBytes:    limits.MaxAuthBytes,
		},
		Player: PlayerConfig{
			State:         "idle",
			VolumePercent: 100,
		},
	}
}

// Load reads path over the defaults: only keys present in the file replace
// a default. Environment overrides apply last.
func Load(path string) (SessionConfig, error) {
	cfg := Default()

	var raw SessionConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("load session config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return SessionConfig{}, fmt.Errorf("load session config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ID = id
		}
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("library_version") {
		cfg.LibraryVersion = raw.LibraryVersion
	}
	if meta.IsDefined("interface_version") {
		cfg.InterfaceVersion = raw.InterfaceVersion
	}
	if meta.IsDefined("activity_handle") {
		cfg.ActivityHandle = strings.TrimSpace(raw.ActivityHandle)
	}
	if meta.IsDefined("platform_token") {
		cfg.PlatformToken = raw.PlatformToken
	}
	if meta.IsDefined("allowed_packages") {
		cfg.AllowedPackages = normalizeList(raw.AllowedPackages)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("auth_token") {
		cfg.AuthToken = strings.TrimSpace(raw.AuthToken)
	}
	if meta.IsDefined("tls") {
		cfg.TLS = raw.TLS
	}

	if meta.IsDefined("wire", "format") {
		cfg.Wire.Format = strings.ToLower(strings.TrimSpace(raw.Wire.Format))
	}
	if meta.IsDefined("wire", "compress_above") {
		cfg.Wire.CompressAbove = raw.Wire.CompressAbove
	}
	if meta.IsDefined("wire", "max_payload_bytes") {
		cfg.Wire.MaxPayloadBytes = raw.Wire.MaxPayloadBytes
	}
	if meta.IsDefined("wire", "max_auth_bytes") {
		cfg.Wire.MaxAuthBytes = raw.Wire.MaxAuthBytes
	}

	if meta.IsDefined("commands") {
		cfg.Commands = raw.Commands
		cfg.Commands.Custom = normalizeList(raw.Commands.Custom)
	}
	if meta.IsDefined("buttons") {
		cfg.Buttons = raw.Buttons
	}
	if meta.IsDefined("player") {
		p := raw.Player
		if !meta.IsDefined("player", "state") {
			p.State = cfg.Player.State
		}
		if !meta.IsDefined("player", "volume_percent") {
			p.VolumePercent = cfg.Player.VolumePercent
		}
		cfg.Player = p
	}
	if meta.IsDefined("session_extras") {
		cfg.Extras = raw.Extras
	}

	if err := ApplyEnv(&cfg); err != nil {
		return SessionConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from CONNSTATE_* variables.
func ApplyEnv(cfg *SessionConfig) error {
	var raw envOverrides
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if raw.Listen != nil {
		cfg.Listen = strings.TrimSpace(*raw.Listen)
	}
	if raw.InterfaceVersion != nil {
		cfg.InterfaceVersion = *raw.InterfaceVersion
	}
	if raw.WireFormat != nil {
		cfg.Wire.Format = strings.ToLower(strings.TrimSpace(*raw.WireFormat))
	}
	if raw.CompressAbove != nil {
		cfg.Wire.CompressAbove = *raw.CompressAbove
	}
	if raw.AuthToken != nil {
		cfg.AuthToken = strings.TrimSpace(*raw.AuthToken)
	}
	return nil
}

func Validate(cfg SessionConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("session config missing id")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("session config missing listen")
	}
	if cfg.LibraryVersion < 0 || cfg.InterfaceVersion < 0 {
		return fmt.Errorf("session config versions must not be negative")
	}
	switch cfg.Wire.Format {
	case "tlv", "cbor":
	default:
		return fmt.Errorf("wire.format must be tlv or cbor, got %q", cfg.Wire.Format)
	}
	if cfg.Wire.CompressAbove < 0 {
		return fmt.Errorf("wire.compress_above must not be negative")
	}
	if cfg.Wire.MaxPayloadBytes == 0 {
		return fmt.Errorf("wire.max_payload_bytes is required")
	}
	for _, origin := range cfg.CorsOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors_origins entry %q must start with http:// or https://", origin)
		}
	}
	if cfg.Wire.MaxAuthBytes > uint64(frame.MaxAuthLen) {
		return fmt.Errorf("wire.max_auth_bytes must not exceed %d", frame.MaxAuthLen)
	}
	if uint64(len(cfg.AuthToken)) > cfg.Wire.MaxAuthBytes {
		return fmt.Errorf("auth_token exceeds wire.max_auth_bytes")
	}
	if err := cfg.transportTLS().ValidateServer(); err != nil {
		return fmt.Errorf("tls invalid: %w", err)
	}
	if _, err := parseState(cfg.Player.State); err != nil {
		return err
	}
	for key := range cfg.Extras {
		if _, err := parseKey(key); err != nil {
			return err
		}
	}
	lists := map[string][]ButtonConfig{
		"custom_layout":            cfg.Buttons.CustomLayout,
		"media_button_preferences": cfg.Buttons.MediaButtonPreferences,
		"for_media_items":          cfg.Buttons.ForMediaItems,
	}
	for name, buttons := range lists {
		for i, b := range buttons {
			if err := validateButton(b); err != nil {
				return fmt.Errorf("buttons.%s[%d] invalid: %w", name, i, err)
			}
		}
	}
	return nil
}

func validateButton(b ButtonConfig) error {
	triggers := 0
	if b.PlayerCommand != 0 {
		triggers++
	}
	if b.CustomAction != "" || b.SessionCode != 0 {
		triggers++
	}
	if triggers != 1 {
		return fmt.Errorf("exactly one of player_command or a session command is required")
	}
	if b.CustomAction != "" && b.SessionCode != 0 {
		return fmt.Errorf("custom_action and session_code are exclusive")
	}
	for _, s := range b.Slots {
		if _, err := parseSlot(s); err != nil {
			return err
		}
	}
	return nil
}

// parseKey reads an extras key written in base 36, the way keys print.
func parseKey(raw string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 36, 16)
	if err != nil {
		return 0, fmt.Errorf("session_extras key %q: %w", raw, err)
	}
	return uint16(v), nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
