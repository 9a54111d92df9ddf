// Package mediasession is the session side of a connection: it accepts
// connection requests from controllers and builds one ConnectionState per
// accepted request.
package mediasession

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/command"
	"github.com/danmuck/connstate/internal/connstate"
	"github.com/danmuck/connstate/internal/observability"
	"github.com/danmuck/connstate/internal/player"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidRequest reports a connection request that cannot be served.
	ErrInvalidRequest = errors.New("mediasession: invalid connection request")
	// ErrRejected reports a well-formed request the session refused.
	ErrRejected = errors.New("mediasession: connection rejected")
)

// LibraryVersion and InterfaceVersion are what this session reports when the
// configuration does not override them.
const (
	LibraryVersion   = 1007000
	InterfaceVersion = 8
)

// Player is the live player a session exposes.
type Player interface {
	AvailableCommands() player.Commands
	Info() player.Info
}

// Config is the session's current offer to controllers.
type Config struct {
	LibraryVersion              int
	InterfaceVersion            int
	ActivityHandle              bundle.Handle
	SessionCommands             command.SessionCommands
	PlayerCommands              player.Commands
	CustomLayout                []command.Button
	MediaButtonPreferences      []command.Button
	CommandButtonsForMediaItems []command.Button
	TokenExtras                 *bundle.Bundle
	SessionExtras               *bundle.Bundle
	PlatformToken               bundle.Token
	// AllowedPackages limits which controllers may connect. Empty allows all.
	AllowedPackages []string
}

func DefaultConfig() Config {
	return Config{
		LibraryVersion:   LibraryVersion,
		InterfaceVersion: InterfaceVersion,
		SessionCommands:  command.EmptySessionCommands,
		PlayerCommands:   player.AllCommands(),
		TokenExtras:      bundle.New(),
		SessionExtras:    bundle.New(),
	}
}

// Session hands out connection states built from its configuration and the
// player's state at the moment of each acceptance.
type Session struct {
	id     string
	mu     sync.RWMutex
	cfg    Config
	player Player
}

func New(id string, cfg Config, p Player) *Session {
	return &Session{id: id, cfg: cfg, player: p}
}

func (s *Session) ID() string {
	return s.id
}

// Update changes the offer for connections accepted from now on. States
// already handed out are unaffected.
func (s *Session) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
}

func (s *Session) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// ValidateRequest checks the fields a session relies on.
func ValidateRequest(req connstate.ConnectionRequest) error {
	if strings.TrimSpace(req.PackageName) == "" {
		return fmt.Errorf("%w: package name is required", ErrInvalidRequest)
	}
	if req.ControllerInterfaceVersion < 0 {
		return fmt.Errorf("%w: controller interface version %d", ErrInvalidRequest, req.ControllerInterfaceVersion)
	}
	if req.LibraryVersion < 0 {
		return fmt.Errorf("%w: library version %d", ErrInvalidRequest, req.LibraryVersion)
	}
	return nil
}

// Accept builds the connection state for one controller and picks its
// delivery: the instance itself for a same-process controller, otherwise a
// bundle encoded for the controller's interface version. Every call mints a
// new session handle.
func (s *Session) Accept(req connstate.ConnectionRequest, sameProcess bool) (connstate.Delivery, error) {
	path := deliveryPath(sameProcess)
	if err := ValidateRequest(req); err != nil {
		observability.RecordAccept(path, err)
		return connstate.Delivery{}, err
	}

	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	if len(cfg.AllowedPackages) > 0 && !slices.Contains(cfg.AllowedPackages, req.PackageName) {
		err := fmt.Errorf("%w: package %q not allowed", ErrRejected, req.PackageName)
		observability.RecordAccept(path, err)
		log.Info().Str("session", s.id).Str("package", req.PackageName).Msg("mediasession.Accept rejected")
		return connstate.Delivery{}, err
	}

	state, err := connstate.New(connstate.Params{
		LibraryVersion:              cfg.LibraryVersion,
		SessionInterfaceVersion:     cfg.InterfaceVersion,
		SessionHandle:               bundle.NewHandle(),
		ActivityHandle:              cfg.ActivityHandle,
		CustomLayout:                cfg.CustomLayout,
		MediaButtonPreferences:      cfg.MediaButtonPreferences,
		CommandButtonsForMediaItems: cfg.CommandButtonsForMediaItems,
		SessionCommands:             cfg.SessionCommands,
		PlayerCommandsFromSession:   cfg.PlayerCommands,
		PlayerCommandsFromPlayer:    s.player.AvailableCommands(),
		TokenExtras:                 cfg.TokenExtras,
		SessionExtras:               cfg.SessionExtras,
		PlayerInfo:                  s.player.Info(),
		PlatformToken:               cfg.PlatformToken,
	})
	if err != nil {
		observability.RecordAccept(path, err)
		return connstate.Delivery{}, err
	}

	downgraded := !sameProcess && state.Downgrades(req.ControllerInterfaceVersion)
	d := state.ForRecipient(req.ControllerInterfaceVersion, sameProcess)
	observability.RecordAccept(path, nil)
	observability.RecordStateEncode(path, downgraded)
	log.Info().
		Str("session", s.id).
		Str("package", req.PackageName).
		Int("controller_interface_version", req.ControllerInterfaceVersion).
		Str("path", path).
		Bool("downgraded", downgraded).
		Str("handle", string(state.SessionHandle())).
		Msg("mediasession.Accept")
	return d, nil
}

// Connect is the controller side: it turns a delivery into a state.
func Connect(d connstate.Delivery) (*connstate.ConnectionState, error) {
	state, err := connstate.FromDelivery(d)
	observability.RecordStateDecode(d.Kind().String(), err)
	if err != nil {
		log.Error().Err(err).Stringer("path", d.Kind()).Msg("mediasession.Connect decode failed")
		return nil, err
	}
	return state, nil
}

func deliveryPath(sameProcess bool) string {
	if sameProcess {
		return connstate.DeliveryLocal.String()
	}
	return connstate.DeliveryRemote.String()
}
