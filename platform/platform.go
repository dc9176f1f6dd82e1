package platform

import (
	"context"
)

// KeyCombo represents a keyboard key combination
type KeyCombo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Win   bool
	Key   int // Virtual key code
}

// Typer injects synthetic keystrokes into whatever window currently
// holds input focus
type Typer interface {
	// TypeText writes a literal string
	TypeText(text string) error
	// PressKey presses and releases a named key ("enter", "tab",
	// "backspace", "esc")
	PressKey(name string) error
}

// Foreground queries the window currently receiving input
type Foreground interface {
	// ActiveWindowTitle returns the title of the foreground window, or
	// an empty string when there is none
	ActiveWindowTitle() (string, error)
}

// Hotkey provides process-wide hotkey registration. At most one
// binding is active at a time; Rebind replaces the prior one
// (unregister then register), so a failed Rebind leaves no binding.
type Hotkey interface {
	// Start launches the listener; hotkey triggers arrive on the
	// returned channel until ctx is cancelled.
	Start(ctx context.Context) (<-chan struct{}, error)
	// Rebind replaces the active binding. It fails when the combination
	// is already claimed by another process.
	Rebind(combo KeyCombo) error
	// Unbind releases the active binding.
	Unbind() error
}
