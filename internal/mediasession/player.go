package mediasession

import (
	"sync"

	"github.com/danmuck/connstate/internal/player"
)

// StaticPlayer is a Player whose state is set by its owner. It backs the CLI
// and tests where no real playback engine exists.
type StaticPlayer struct {
	mu       sync.RWMutex
	commands player.Commands
	info     player.Info
}

func NewStaticPlayer(commands player.Commands, info player.Info) *StaticPlayer {
	return &StaticPlayer{commands: commands, info: info.Clone()}
}

func (p *StaticPlayer) AvailableCommands() player.Commands {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.commands
}

func (p *StaticPlayer) Info() player.Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info.Clone()
}

func (p *StaticPlayer) Set(commands player.Commands, info player.Info) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = commands
	p.info = info.Clone()
}
