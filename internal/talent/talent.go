// Package talent provides the built-in talents and the observer that turns
// cursor and lock key events into speech.
package talent

import (
	"context"
	"fmt"
	"time"

	"rigela/internal/combokey"
	"rigela/internal/commander"
	"rigela/internal/keys"
)

// Built-in talent ids, in registration order.
const (
	IDExit            = "program.exit"
	IDCurrentTime     = "program.current_time"
	IDCurrentDate     = "program.current_date"
	IDMouseReadToggle = "mouse.read.toggle"
	IDMouseClick      = "mouse.click"
	IDMouseRightClick = "mouse.right_click"
)

// Performer speaks text to the user.
type Performer interface {
	Speak(ctx context.Context, text string) error
}

// Host is the part of the commander the talents drive.
type Host interface {
	ToggleMouseRead() bool
	LastPressedKey() keys.Keys
	SetLastPressedKey(k keys.Keys)
}

// Deps are the collaborators of the built-in talents.
type Deps struct {
	Performer Performer
	Host      Host
	// Exit asks the application to shut down.
	Exit func()
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) speak(ctx context.Context, text string) error {
	if d.Performer == nil {
		return nil
	}
	return d.Performer.Speak(ctx, text)
}

// Builtins returns the built-in talents in registration order.
func Builtins(d Deps) []commander.Talent {
	return []commander.Talent{
		commander.NewTalent(IDExit, "Exit the screen reader", func(ctx context.Context) error {
			err := d.speak(ctx, "Exiting RigelA")
			if d.Exit != nil {
				d.Exit()
			}
			return err
		}, key("RigelA+Esc")),

		commander.NewTalent(IDCurrentTime, "Speak the current time", func(ctx context.Context) error {
			return d.speak(ctx, d.now().Format("15:04"))
		}, key("RigelA+F12")),

		commander.NewTalent(IDCurrentDate, "Speak the current date", func(ctx context.Context) error {
			return d.speak(ctx, d.now().Format("Monday, January 2, 2006"))
		}, key("RigelA+F12(Double)")),

		commander.NewTalent(IDMouseReadToggle, "Toggle reading under the mouse", func(ctx context.Context) error {
			if d.Host == nil {
				return fmt.Errorf("%s: no host", IDMouseReadToggle)
			}
			if d.Host.ToggleMouseRead() {
				return d.speak(ctx, "Mouse reading on")
			}
			return d.speak(ctx, "Mouse reading off")
		}, key("RigelA+M")),

		commander.NewTalent(IDMouseClick, "Left mouse click", func(ctx context.Context) error {
			return d.speak(ctx, "Click")
		}, key("NumPadDiv")),

		commander.NewTalent(IDMouseRightClick, "Right mouse click", func(ctx context.Context) error {
			return d.speak(ctx, "Right click")
		}, key("NumPadMul")),
	}
}

// Register adds the built-in talents to r.
func Register(r *commander.Registry, d Deps) error {
	for _, t := range Builtins(d) {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func key(chord string) commander.Command {
	return commander.KeyCommand(combokey.MustParse(chord))
}
