package commander

import (
	"context"
	"fmt"

	"rigela/internal/combokey"
)

// CommandKind is the input modality of a command declaration.
type CommandKind uint8

const (
	CommandKey CommandKind = iota
	CommandTouch
	CommandVoice
)

func (k CommandKind) String() string {
	switch k {
	case CommandKey:
		return "key"
	case CommandTouch:
		return "touch"
	case CommandVoice:
		return "voice"
	}
	return fmt.Sprintf("CommandKind(%d)", uint8(k))
}

// Command is one way a talent can be invoked. Only key commands are matched
// by this package; touch and voice declarations are carried for other
// front ends.
type Command struct {
	Kind    CommandKind
	Chord   combokey.ComboKey
	Gesture string
	Phrase  string
}

// KeyCommand declares a keyboard chord.
func KeyCommand(chord combokey.ComboKey) Command {
	return Command{Kind: CommandKey, Chord: chord}
}

// TouchCommand declares a touch gesture.
func TouchCommand(gesture string) Command {
	return Command{Kind: CommandTouch, Gesture: gesture}
}

// VoiceCommand declares a spoken phrase.
func VoiceCommand(phrase string) Command {
	return Command{Kind: CommandVoice, Phrase: phrase}
}

// Talent is a registrable assistive action.
type Talent interface {
	ID() string
	Doc() string
	Commands() []Command
	Perform(ctx context.Context) error
}

type funcTalent struct {
	id       string
	doc      string
	commands []Command
	perform  func(ctx context.Context) error
}

// NewTalent adapts a function into a Talent.
func NewTalent(id, doc string, perform func(ctx context.Context) error, commands ...Command) Talent {
	return &funcTalent{id: id, doc: doc, commands: commands, perform: perform}
}

func (t *funcTalent) ID() string          { return t.id }
func (t *funcTalent) Doc() string         { return t.doc }
func (t *funcTalent) Commands() []Command { return t.commands }

func (t *funcTalent) Perform(ctx context.Context) error {
	if t.perform == nil {
		return nil
	}
	return t.perform(ctx)
}

// DefaultChords returns the key chords a talent declares.
func DefaultChords(t Talent) []combokey.ComboKey {
	var out []combokey.ComboKey
	for _, c := range t.Commands() {
		if c.Kind == CommandKey {
			out = append(out, c.Chord)
		}
	}
	return out
}
