package synth

import "fmt"

// CommandKind tags the variant carried by a Command.
type CommandKind uint8

const (
	CmdPlayHold CommandKind = iota + 1
	CmdRelease
	CmdSetOutputGain
)

func (k CommandKind) String() string {
	switch k {
	case CmdPlayHold:
		return "PlayHold"
	case CmdRelease:
		return "Release"
	case CmdSetOutputGain:
		return "SetOutputGain"
	}
	return fmt.Sprintf("CommandKind(%d)", uint8(k))
}

// Command is a message from the control goroutine to the audio goroutine.
// Only the fields of its Kind are meaningful. It is a plain value so a queue
// of commands never allocates.
type Command struct {
	Kind       CommandKind
	ID         uint64
	Descriptor SoundDescriptor
	Gain       float32
}

// PlayHold starts a note, or retunes the live voice that already owns id.
func PlayHold(id uint64, d SoundDescriptor) Command {
	return Command{Kind: CmdPlayHold, ID: id, Descriptor: d}
}

// Release lets go of the note owning id.
func Release(id uint64) Command {
	return Command{Kind: CmdRelease, ID: id}
}

// SetOutputGain replaces the master volume (linear).
func SetOutputGain(linear float32) Command {
	return Command{Kind: CmdSetOutputGain, Gain: linear}
}

func (c Command) String() string {
	switch c.Kind {
	case CmdPlayHold:
		return fmt.Sprintf("PlayHold(%d, %.2fHz)", c.ID, c.Descriptor.Fundamental)
	case CmdRelease:
		return fmt.Sprintf("Release(%d)", c.ID)
	case CmdSetOutputGain:
		return fmt.Sprintf("SetOutputGain(%g)", c.Gain)
	}
	return c.Kind.String()
}
