// Package player models what a controller may do to and learn about the
// session's player: the command sets it is granted and the state snapshot it
// receives on connection.
package player

import (
	"slices"

	"github.com/danmuck/connstate/internal/bundle"
	"github.com/danmuck/connstate/internal/protocol/schema"
)

// Command is one player operation. Values match the media library numbering
// so sets survive a round trip through older peers.
type Command int

const (
	CommandPlayPause               Command = 1
	CommandPrepare                 Command = 2
	CommandStop                    Command = 3
	CommandSeekToDefaultPosition   Command = 4
	CommandSeekInCurrentMediaItem  Command = 5
	CommandSeekToPreviousMediaItem Command = 6
	CommandSeekToPrevious          Command = 7
	CommandSeekToNextMediaItem     Command = 8
	CommandSeekToNext              Command = 9
	CommandSeekToMediaItem         Command = 10
	CommandSeekBack                Command = 11
	CommandSeekForward             Command = 12
	CommandSetSpeedAndPitch        Command = 13
	CommandSetShuffleMode          Command = 14
	CommandSetRepeatMode           Command = 15
	CommandGetCurrentMediaItem     Command = 16
	CommandGetTimeline             Command = 17
	CommandGetMetadata             Command = 18
	CommandSetPlaylistMetadata     Command = 19
	CommandChangeMediaItems        Command = 20
	CommandGetAudioAttributes      Command = 21
	CommandGetVolume               Command = 22
	CommandGetDeviceVolume         Command = 23
	CommandSetVolume               Command = 24
	CommandSetTrackSelection       Command = 29
	CommandGetTracks               Command = 30
	CommandSetMediaItem            Command = 31
	CommandRelease                 Command = 32
)

var allCommands = []Command{
	CommandPlayPause, CommandPrepare, CommandStop, CommandSeekToDefaultPosition,
	CommandSeekInCurrentMediaItem, CommandSeekToPreviousMediaItem, CommandSeekToPrevious,
	CommandSeekToNextMediaItem, CommandSeekToNext, CommandSeekToMediaItem, CommandSeekBack,
	CommandSeekForward, CommandSetSpeedAndPitch, CommandSetShuffleMode, CommandSetRepeatMode,
	CommandGetCurrentMediaItem, CommandGetTimeline, CommandGetMetadata,
	CommandSetPlaylistMetadata, CommandChangeMediaItems, CommandGetAudioAttributes,
	CommandGetVolume, CommandGetDeviceVolume, CommandSetVolume,
	CommandSetTrackSelection, CommandGetTracks, CommandSetMediaItem, CommandRelease,
}

// Commands is an immutable set of player commands.
type Commands struct {
	list []Command // sorted, unique
}

// EmptyCommands is the set with no commands.
var EmptyCommands = Commands{}

func NewCommands(cs ...Command) Commands {
	list := slices.Clone(cs)
	slices.Sort(list)
	return Commands{list: slices.Compact(list)}
}

// AllCommands returns every command this package knows.
func AllCommands() Commands {
	return NewCommands(allCommands...)
}

func (c Commands) Contains(cmd Command) bool {
	_, ok := slices.BinarySearch(c.list, cmd)
	return ok
}

// ContainsAny reports whether at least one of cmds is in c.
func (c Commands) ContainsAny(cmds ...Command) bool {
	for _, cmd := range cmds {
		if c.Contains(cmd) {
			return true
		}
	}
	return false
}

func (c Commands) Len() int {
	return len(c.list)
}

// List returns the commands in ascending order.
func (c Commands) List() []Command {
	return slices.Clone(c.list)
}

func (c Commands) Equal(other Commands) bool {
	return slices.Equal(c.list, other.list)
}

// Union returns the commands present in either set.
func (c Commands) Union(other Commands) Commands {
	return NewCommands(append(c.List(), other.list...)...)
}

// Intersect returns the commands present in both a and b. It is commutative
// and idempotent; the effective command set of a connection is always
// Intersect(fromSession, fromPlayer).
func Intersect(a, b Commands) Commands {
	out := make([]Command, 0, min(len(a.list), len(b.list)))
	i, j := 0, 0
	for i < len(a.list) && j < len(b.list) {
		switch {
		case a.list[i] == b.list[j]:
			out = append(out, a.list[i])
			i++
			j++
		case a.list[i] < b.list[j]:
			i++
		default:
			j++
		}
	}
	return Commands{list: out}
}

func (c Commands) ToBundle() *bundle.Bundle {
	ints := make([]int64, len(c.list))
	for i, cmd := range c.list {
		ints[i] = int64(cmd)
	}
	b := bundle.New()
	b.PutInts(schema.FieldPlayerCommandsList, ints)
	return b
}

// CommandsFromBundle decodes a command set. Unknown command values are kept
// so a newer session's grants pass through unchanged.
func CommandsFromBundle(b *bundle.Bundle) (Commands, error) {
	if err := schema.PlayerCommands.Validate(b); err != nil {
		return Commands{}, err
	}
	ints, _, err := b.Ints(schema.FieldPlayerCommandsList)
	if err != nil {
		return Commands{}, schema.PlayerCommands.Malformed(schema.FieldPlayerCommandsList, err)
	}
	cmds := make([]Command, len(ints))
	for i, v := range ints {
		cmds[i] = Command(v)
	}
	return NewCommands(cmds...), nil
}
