package mediasession

import (
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/connstate/internal/command"
	"github.com/danmuck/connstate/internal/connstate"
	"github.com/danmuck/connstate/internal/player"
	"github.com/danmuck/connstate/internal/testutil/testlog"
)

func newSession() *Session {
	cfg := DefaultConfig()
	cfg.MediaButtonPreferences = []command.Button{
		{PlayerCommand: player.CommandSeekToPrevious, DisplayName: "prev", Enabled: true, Slots: []command.Slot{command.SlotBack}},
		{PlayerCommand: player.CommandSeekToNext, DisplayName: "next", Enabled: true, Slots: []command.Slot{command.SlotForward}},
	}
	info := player.DefaultInfo()
	info.PlaybackState = player.StateReady
	p := NewStaticPlayer(player.NewCommands(player.CommandPlayPause, player.CommandGetCurrentMediaItem), info)
	return New("test-session", cfg, p)
}

func request(version int) connstate.ConnectionRequest {
	return connstate.ConnectionRequest{PackageName: "com.example.remote", ControllerInterfaceVersion: version}
}

func TestAcceptRejectsInvalidRequests(t *testing.T) {
	testlog.Start(t)
	s := newSession()
	cases := []connstate.ConnectionRequest{
		{PackageName: "", ControllerInterfaceVersion: 7},
		{PackageName: "   ", ControllerInterfaceVersion: 7},
		{PackageName: "com.example", ControllerInterfaceVersion: -1},
	}
	for _, req := range cases {
		if _, err := s.Accept(req, false); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("request %+v: expected ErrInvalidRequest, got %v", req, err)
		}
	}
}

func TestAcceptLegacyControllerIsLegal(t *testing.T) {
	testlog.Start(t)
	s := newSession()
	d, err := s.Accept(request(0), false)
	if err != nil {
		t.Fatalf("accept v0: %v", err)
	}
	state, err := Connect(d)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(state.MediaButtonPreferences()) != 0 || len(state.CustomLayout()) != 2 {
		t.Fatalf("legacy controller should get a flattened layout: %+v", state.CustomLayout())
	}
}

func TestAcceptMintsFreshHandles(t *testing.T) {
	testlog.Start(t)
	s := newSession()
	seen := map[string]bool{}
	for range 5 {
		d, err := s.Accept(request(7), true)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		state, ok := d.Unwrap()
		if !ok {
			t.Fatalf("same-process accept should deliver locally")
		}
		h := string(state.SessionHandle())
		if h == "" || seen[h] {
			t.Fatalf("handle reused or empty: %q", h)
		}
		seen[h] = true
	}
}

func TestAcceptIntersectsPlayerCommands(t *testing.T) {
	testlog.Start(t)
	s := newSession()
	s.Update(func(cfg *Config) {
		cfg.PlayerCommands = player.NewCommands(player.CommandPlayPause, player.CommandStop)
	})
	d, err := s.Accept(request(7), false)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	state, err := Connect(d)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !state.EffectivePlayerCommands().Equal(player.NewCommands(player.CommandPlayPause)) {
		t.Fatalf("effective commands %v", state.EffectivePlayerCommands().List())
	}
}

func TestAllowedPackages(t *testing.T) {
	testlog.Start(t)
	s := newSession()
	s.Update(func(cfg *Config) { cfg.AllowedPackages = []string{"com.example.trusted"} })
	if _, err := s.Accept(request(7), false); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	req := request(7)
	req.PackageName = "com.example.trusted"
	if _, err := s.Accept(req, false); err != nil {
		t.Fatalf("trusted package rejected: %v", err)
	}
}

func TestUpdateDoesNotTouchIssuedStates(t *testing.T) {
	testlog.Start(t)
	s := newSession()
	d, err := s.Accept(request(7), true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	state, _ := d.Unwrap()
	s.Update(func(cfg *Config) { cfg.MediaButtonPreferences = nil })
	if len(state.MediaButtonPreferences()) != 2 {
		t.Fatalf("issued state changed after Update")
	}
}

func TestConcurrentAccepts(t *testing.T) {
	testlog.Start(t)
	s := newSession()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Accept(request(5+i%4), i%2 == 0)
			if err == nil {
				_, err = Connect(d)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent accept: %v", err)
		}
	}
}

func TestPlayerChangesReachLaterConnections(t *testing.T) {
	testlog.Start(t)
	p := NewStaticPlayer(player.NewCommands(player.CommandPlayPause), player.DefaultInfo())
	s := New("test-session", DefaultConfig(), p)

	first, err := s.Accept(request(8), true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	info := player.DefaultInfo()
	info.PlaybackState = player.StateReady
	info.CurrentMediaItem = player.MediaItem{MediaID: "song-2", Title: "Outro"}
	p.Set(player.NewCommands(player.CommandPlayPause, player.CommandGetCurrentMediaItem), info)

	second, err := s.Accept(request(8), false)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	state, err := Connect(second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if state.PlayerInfo().CurrentMediaItem.Title != "Outro" {
		t.Fatalf("new player state not carried: %+v", state.PlayerInfo())
	}
	if !state.EffectivePlayerCommands().Contains(player.CommandGetCurrentMediaItem) {
		t.Fatalf("new player commands not carried: %v", state.EffectivePlayerCommands().List())
	}

	old, _ := first.Unwrap()
	if old.PlayerInfo().PlaybackState != player.StateIdle {
		t.Fatalf("issued state changed after player update")
	}
}
